package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NicoZweifel/aquila/pkg/client"
)

var (
	runImage   string
	runProfile string
	runQueue   string
	runEnv     []string
	runCPU     string
	runMemory  string
	runGPU     string
	runRemove  bool
	runAttach  bool
)

var runCmd = &cobra.Command{
	Use:   "run [flags] -- <cmd> [args...]",
	Short: "Submit a container job",
	Long: `Submit a job to the gateway's compute backend.

Examples:
  aquila run --image alpine -- echo hello
  aquila run --profile gpu --env DATASET=v2 -- python train.py
  aquila run --attach --image alpine -- sh -c 'for i in 1 2 3; do echo $i; done'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

var attachCmd = &cobra.Command{
	Use:   "attach <job-id>",
	Short: "Stream the logs of a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runAttachCmd,
}

func init() {
	runCmd.Flags().StringVar(&runImage, "image", "", "container image (backend default when empty)")
	runCmd.Flags().StringVar(&runProfile, "profile", "", "job profile")
	runCmd.Flags().StringVar(&runQueue, "queue", "", "queue override")
	runCmd.Flags().StringSliceVar(&runEnv, "env", nil, "environment variables, KEY=VALUE")
	runCmd.Flags().StringVar(&runCPU, "cpu", "", "vCPU override")
	runCmd.Flags().StringVar(&runMemory, "memory", "", "memory override in MiB")
	runCmd.Flags().StringVar(&runGPU, "gpu", "", "GPU driver to attach")
	runCmd.Flags().BoolVar(&runRemove, "remove", false, "remove the container when it finishes")
	runCmd.Flags().BoolVar(&runAttach, "attach", false, "attach to the job's logs after submitting")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(attachCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	env := make([]client.EnvVar, 0, len(runEnv))
	for _, kv := range runEnv {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid --env %q, want KEY=VALUE", kv)
		}
		env = append(env, client.EnvVar{Name: name, Value: value})
	}

	c := apiClient()
	result, err := c.Run(cmd.Context(), &client.JobRequest{
		Image:   runImage,
		Profile: runProfile,
		Queue:   runQueue,
		Cmd:     args,
		Env:     env,
		CPU:     runCPU,
		Memory:  runMemory,
		GPU:     runGPU,
		Remove:  runRemove,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "job %s %s\n", result.ID, result.Status.State)
	fmt.Println(result.ID)

	if runAttach {
		return attach(cmd, result.ID)
	}
	return nil
}

func runAttachCmd(cmd *cobra.Command, args []string) error {
	return attach(cmd, args[0])
}

func attach(cmd *cobra.Command, jobID string) error {
	return apiClient().Attach(cmd.Context(), jobID, client.LogSinks{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		System: os.Stderr,
	})
}
