// Package awsbatch runs jobs on AWS Batch and follows their logs through
// CloudWatch Logs.
//
// Batch writes a job's output to a log stream that only appears once the
// container has started, and the Logs API is eventually consistent, so the
// follower treats "stream not there yet" and service hiccups as transient.
// It keeps a strike count across transient failures and gives up after the
// budget is spent, delivering one terminal error before ending the stream.
package awsbatch

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/batch"
	batchtypes "github.com/aws/aws-sdk-go-v2/service/batch/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/google/uuid"

	"github.com/NicoZweifel/aquila/internal/compute"
	"github.com/NicoZweifel/aquila/internal/models"
	"github.com/NicoZweifel/aquila/internal/pkg/apierrors"
)

const (
	// logGroup is where AWS Batch places container output.
	logGroup = "/aws/batch/job"

	// maxStrikes is the transient-failure budget of a follower.
	maxStrikes = 15

	defaultPollInterval = 2 * time.Second
)

// batchAPI is the subset of the Batch client the driver uses.
type batchAPI interface {
	SubmitJob(ctx context.Context, in *batch.SubmitJobInput, opts ...func(*batch.Options)) (*batch.SubmitJobOutput, error)
	DescribeJobs(ctx context.Context, in *batch.DescribeJobsInput, opts ...func(*batch.Options)) (*batch.DescribeJobsOutput, error)
}

// logsAPI is the subset of the CloudWatch Logs client the driver uses.
type logsAPI interface {
	GetLogEvents(ctx context.Context, in *cloudwatchlogs.GetLogEventsInput, opts ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.GetLogEventsOutput, error)
}

// Backend dispatches jobs to AWS Batch.
type Backend struct {
	batch        batchAPI
	logs         logsAPI
	queue        string
	profiles     map[string]string
	pollInterval time.Duration
}

var _ compute.Backend = (*Backend)(nil)

// Option configures the backend.
type Option func(*Backend)

// WithPollInterval overrides the wait between follower attempts, for
// tests.
func WithPollInterval(d time.Duration) Option {
	return func(b *Backend) { b.pollInterval = d }
}

// New returns a driver submitting to queue. profiles maps a profile name
// from the job request to a registered Batch job definition; the "default"
// entry serves requests that name none.
func New(batchClient batchAPI, logsClient logsAPI, queue string, profiles map[string]string, opts ...Option) *Backend {
	b := &Backend{
		batch:        batchClient,
		logs:         logsClient,
		queue:        queue,
		profiles:     profiles,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Init probes the Batch API.
func (b *Backend) Init(ctx context.Context) error {
	if _, err := b.batch.DescribeJobs(ctx, &batch.DescribeJobsInput{Jobs: []string{}}); err != nil {
		return apierrors.ComputeSystemErr("batch unreachable: %v", err)
	}
	return nil
}

// Run submits the job against its profile's job definition. Batch jobs run
// whatever image the definition registered, so an image override is not
// available on this backend.
func (b *Backend) Run(ctx context.Context, req *models.JobRequest) (*models.JobResult, error) {
	if req.Image != "" {
		return nil, apierrors.ComputeUnsupportedErr("image override on the batch backend")
	}

	profile := req.Profile
	if profile == "" {
		profile = "default"
	}
	definition, ok := b.profiles[profile]
	if !ok {
		return nil, apierrors.ComputeInvalidErr("unknown profile %q", profile)
	}

	queue := b.queue
	if req.Queue != "" {
		queue = req.Queue
	}

	// No command override means the job definition's default command runs.
	overrides := &batchtypes.ContainerOverrides{}
	if len(req.Cmd) > 0 {
		overrides.Command = req.Cmd
	}
	for _, e := range req.Env {
		overrides.Environment = append(overrides.Environment, batchtypes.KeyValuePair{
			Name:  aws.String(e.Name),
			Value: aws.String(e.Value),
		})
	}
	if req.CPU != "" {
		overrides.ResourceRequirements = append(overrides.ResourceRequirements, batchtypes.ResourceRequirement{
			Type: batchtypes.ResourceTypeVcpu, Value: aws.String(req.CPU),
		})
	}
	if req.Memory != "" {
		overrides.ResourceRequirements = append(overrides.ResourceRequirements, batchtypes.ResourceRequirement{
			Type: batchtypes.ResourceTypeMemory, Value: aws.String(req.Memory),
		})
	}
	if req.GPU != "" {
		overrides.ResourceRequirements = append(overrides.ResourceRequirements, batchtypes.ResourceRequirement{
			Type: batchtypes.ResourceTypeGpu, Value: aws.String("1"),
		})
	}

	out, err := b.batch.SubmitJob(ctx, &batch.SubmitJobInput{
		JobName:            aws.String("aquila-job-" + uuid.NewString()),
		JobQueue:           aws.String(queue),
		JobDefinition:      aws.String(definition),
		ContainerOverrides: overrides,
	})
	if err != nil {
		return nil, classifySubmit(err)
	}

	return &models.JobResult{
		ID:     aws.ToString(out.JobId),
		Status: models.JobStatus{State: models.JobPending},
	}, nil
}

func classifySubmit(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ClientException", "InvalidParameterException":
			return apierrors.ComputeInvalidErr("%s", apiErr.ErrorMessage())
		}
	}
	return apierrors.ComputeSystemErr("submit job: %v", err)
}

// Attach validates the job and starts a follower for its log stream.
func (b *Backend) Attach(ctx context.Context, jobID string) (compute.LogStream, error) {
	detail, err := b.describe(ctx, jobID)
	if err != nil {
		return nil, err
	}

	stream := compute.NewStream(64)
	f := &follower{backend: b, jobID: jobID}
	if detail.Container != nil {
		f.logStream = aws.ToString(detail.Container.LogStreamName)
	}
	go f.run(ctx, stream)
	return stream, nil
}

func (b *Backend) describe(ctx context.Context, jobID string) (*batchtypes.JobDetail, error) {
	out, err := b.batch.DescribeJobs(ctx, &batch.DescribeJobsInput{Jobs: []string{jobID}})
	if err != nil {
		return nil, apierrors.ComputeSystemErr("describe job: %v", err)
	}
	if len(out.Jobs) == 0 {
		return nil, apierrors.ComputeNotFoundErr(jobID)
	}
	return &out.Jobs[0], nil
}

// follower is the tail state machine for one attachment. Each pass either
// discovers the job's log stream or pages it; transient failures cost a
// strike and the pass is retried after the poll interval.
type follower struct {
	backend *Backend

	jobID     string
	logStream string
	nextToken *string
	finished  bool
	strikes   int
}

func (f *follower) run(ctx context.Context, stream *compute.Stream) {
	defer stream.End()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stream.Done():
			return
		default:
		}

		progressed, err := f.step(ctx, stream)
		switch {
		case err == nil && f.finished:
			return
		case err == nil:
			if !progressed && !f.sleep(ctx, stream) {
				return
			}
			continue
		}

		if fatal(err) {
			stream.Send(ctx, compute.LogEvent{Err: err})
			return
		}

		// Transient failures are absorbed silently; only exhausting the
		// budget surfaces to the consumer.
		f.strikes++
		if f.strikes > maxStrikes {
			stream.Send(ctx, compute.LogEvent{
				Err: apierrors.ComputeSystemErr("giving up after %d failed attempts to follow job %s: %v", f.strikes, f.jobID, err),
			})
			return
		}
		if !f.sleep(ctx, stream) {
			return
		}
	}
}

// step advances the machine one pass and reports whether it made progress
// (new events, or a freshly discovered stream name).
func (f *follower) step(ctx context.Context, stream *compute.Stream) (bool, error) {
	if f.logStream == "" {
		return f.discover(ctx)
	}
	return f.page(ctx, stream)
}

// discover polls the job until Batch reports its log stream name. A job
// that reaches a terminal state without ever producing one has no logs to
// follow.
func (f *follower) discover(ctx context.Context) (bool, error) {
	detail, err := f.backend.describe(ctx, f.jobID)
	if err != nil {
		return false, err
	}

	if detail.Container != nil && detail.Container.LogStreamName != nil {
		f.logStream = *detail.Container.LogStreamName
		return true, nil
	}
	if terminalStatus(detail.Status) {
		f.finished = true
	}
	return false, nil
}

// page fetches the next slice of log events. The Logs API signals "caught
// up" by echoing the forward token back; once caught up on a finished job
// the follow is complete.
func (f *follower) page(ctx context.Context, stream *compute.Stream) (bool, error) {
	out, err := f.backend.logs.GetLogEvents(ctx, &cloudwatchlogs.GetLogEventsInput{
		LogGroupName:  aws.String(logGroup),
		LogStreamName: aws.String(f.logStream),
		NextToken:     f.nextToken,
		StartFromHead: aws.Bool(true),
	})
	if err != nil {
		return false, classifyTail(err)
	}

	for _, ev := range out.Events {
		record := &models.LogRecord{
			Source:    models.LogStdout,
			Timestamp: time.UnixMilli(aws.ToInt64(ev.Timestamp)).UTC().Format(time.RFC3339),
			Message:   aws.ToString(ev.Message) + "\n",
		}
		if !stream.Send(ctx, compute.LogEvent{Record: record}) {
			f.finished = true
			return false, nil
		}
	}

	f.nextToken = out.NextForwardToken
	f.strikes = 0

	if len(out.Events) > 0 {
		return true, nil
	}

	// An empty page means we are caught up; the follow is complete once
	// the job has reached a terminal state.
	detail, err := f.backend.describe(ctx, f.jobID)
	if err != nil {
		return false, err
	}
	if terminalStatus(detail.Status) {
		f.finished = true
	}
	return false, nil
}

func (f *follower) sleep(ctx context.Context, stream *compute.Stream) bool {
	t := time.NewTimer(f.backend.pollInterval)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	case <-stream.Done():
		return false
	}
}

func terminalStatus(s batchtypes.JobStatus) bool {
	return s == batchtypes.JobStatusSucceeded || s == batchtypes.JobStatusFailed
}

// classifyTail maps a Logs API failure. The stream lagging behind the job
// (ResourceNotFound), throttles, timeouts and 5xx responses are transient
// and cost a strike; a parameter the service rejects will never succeed.
func classifyTail(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidParameterException":
			return apierrors.ComputeInvalidErr("%s", apiErr.ErrorMessage())
		case "ResourceNotFoundException", "ServiceUnavailableException", "ThrottlingException":
			return apierrors.ComputeSystemErr("get log events: %v", err)
		}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() >= 400 && respErr.HTTPStatusCode() < 500 {
		return apierrors.ComputeInvalidErr("get log events: %v", err)
	}
	return apierrors.ComputeSystemErr("get log events: %v", err)
}

// fatal reports whether a follower error ends the follow at once.
// System-class failures are retried against the strike budget.
func fatal(err error) bool {
	var ce *apierrors.ComputeError
	if errors.As(err, &ce) {
		return ce.Kind == apierrors.ComputeInvalidRequest || ce.Kind == apierrors.ComputeNotFound
	}
	return false
}
