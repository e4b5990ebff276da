// Package docker runs jobs as containers on a local Docker daemon.
//
// The daemon multiplexes stdout and stderr over a single log connection;
// the attach path demultiplexes it back into per-source records so the
// consumer can tell the streams apart.
package docker

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/google/uuid"

	"github.com/NicoZweifel/aquila/internal/compute"
	"github.com/NicoZweifel/aquila/internal/models"
	"github.com/NicoZweifel/aquila/internal/pkg/apierrors"
)

const namePrefix = "aquila-job-"

// API is the subset of the Docker client the driver uses. Narrowing the
// surface keeps the driver testable without a daemon.
type API interface {
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig,
		networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	Ping(ctx context.Context) (types.Ping, error)
}

var _ API = (*client.Client)(nil)

// Backend dispatches jobs to a Docker daemon.
type Backend struct {
	api          API
	defaultImage string
}

var _ compute.Backend = (*Backend)(nil)

// New returns a driver on api. defaultImage is used when a job request
// names no image.
func New(api API, defaultImage string) *Backend {
	return &Backend{api: api, defaultImage: defaultImage}
}

// Init pings the daemon.
func (b *Backend) Init(ctx context.Context) error {
	if _, err := b.api.Ping(ctx); err != nil {
		return apierrors.ComputeSystemErr("docker daemon unreachable: %v", err)
	}
	return nil
}

// Run creates and starts a container for the job.
func (b *Backend) Run(ctx context.Context, req *models.JobRequest) (*models.JobResult, error) {
	image := req.Image
	if image == "" {
		image = b.defaultImage
	}
	if image == "" {
		return nil, apierrors.ComputeInvalidErr("no image requested and no default image configured")
	}

	env := make([]string, 0, len(req.Env))
	for _, e := range req.Env {
		env = append(env, e.Name+"="+e.Value)
	}

	resources, err := resources(req)
	if err != nil {
		return nil, err
	}

	created, err := b.api.ContainerCreate(ctx,
		&container.Config{
			Image: image,
			Cmd:   req.Cmd,
			Env:   env,
		},
		&container.HostConfig{
			AutoRemove: req.Remove,
			Resources:  resources,
		},
		nil, nil, namePrefix+uuid.NewString())
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, apierrors.ComputeInvalidErr("image %s not found", image)
		}
		return nil, apierrors.ComputeSystemErr("create container: %v", err)
	}

	if err := b.api.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return nil, apierrors.ComputeSystemErr("start container: %v", err)
	}

	return &models.JobResult{
		ID:     created.ID,
		Status: models.JobStatus{State: models.JobRunning},
	}, nil
}

func resources(req *models.JobRequest) (container.Resources, error) {
	var res container.Resources

	if req.CPU != "" {
		cpus, err := strconv.ParseFloat(req.CPU, 64)
		if err != nil {
			return res, apierrors.ComputeInvalidErr("cpu %q is not a number", req.CPU)
		}
		res.NanoCPUs = int64(cpus * 1e9)
	}
	if req.Memory != "" {
		mib, err := strconv.ParseInt(req.Memory, 10, 64)
		if err != nil {
			return res, apierrors.ComputeInvalidErr("memory %q is not a number", req.Memory)
		}
		res.Memory = mib << 20
	}
	if req.GPU != "" {
		res.DeviceRequests = []container.DeviceRequest{{
			Driver:       req.GPU,
			Count:        -1,
			Capabilities: [][]string{{"gpu"}},
		}}
	}
	return res, nil
}

// Attach follows the container's logs until it stops.
func (b *Backend) Attach(ctx context.Context, jobID string) (compute.LogStream, error) {
	rc, err := b.api.ContainerLogs(ctx, jobID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
		Timestamps: true,
	})
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, apierrors.ComputeNotFoundErr(jobID)
		}
		return nil, apierrors.ComputeSystemErr("container logs: %v", err)
	}

	stream := compute.NewStream(64)
	go b.follow(ctx, stream, rc)
	return stream, nil
}

// follow demultiplexes the daemon's log connection into the stream. It
// runs until the container stops, the consumer closes the stream, or ctx
// is cancelled.
func (b *Backend) follow(ctx context.Context, stream *compute.Stream, rc io.ReadCloser) {
	defer stream.End()
	defer rc.Close()

	// Closing the source reader unblocks StdCopy when the consumer goes
	// away mid-follow.
	go func() {
		select {
		case <-stream.Done():
		case <-ctx.Done():
		}
		rc.Close()
	}()

	outR, outW := io.Pipe()
	errR, errW := io.Pipe()

	done := make(chan struct{}, 2)
	go func() {
		scanLines(ctx, stream, outR, models.LogStdout)
		done <- struct{}{}
	}()
	go func() {
		scanLines(ctx, stream, errR, models.LogStderr)
		done <- struct{}{}
	}()

	_, err := stdcopy.StdCopy(outW, errW, rc)
	outW.CloseWithError(err)
	errW.CloseWithError(err)
	<-done
	<-done

	if err != nil && ctx.Err() == nil {
		stream.Send(ctx, compute.LogEvent{
			Err: apierrors.ComputeSystemErr("log stream interrupted: %v", err),
		})
	}
}

// scanLines turns one demultiplexed pipe into records. With timestamps
// enabled the daemon prefixes every line with an RFC3339Nano stamp and a
// space.
func scanLines(ctx context.Context, stream *compute.Stream, r io.Reader, source models.LogSource) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		ts, msg, found := strings.Cut(scanner.Text(), " ")
		if !found {
			msg, ts = ts, ""
		}
		ok := stream.Send(ctx, compute.LogEvent{Record: &models.LogRecord{
			Source:    source,
			Timestamp: ts,
			Message:   msg,
		}})
		if !ok {
			// Drain so the writer side never blocks.
			for scanner.Scan() {
			}
			return
		}
	}
}
