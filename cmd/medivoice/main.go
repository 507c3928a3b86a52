package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/medivoice/medivoice/internal/bus"
	"github.com/medivoice/medivoice/internal/config"
	"github.com/medivoice/medivoice/internal/daemon"
	"github.com/medivoice/medivoice/internal/pipeline"
	"github.com/medivoice/medivoice/internal/recording"
	"github.com/medivoice/medivoice/internal/tui"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "medivoice",
	Short:        "Record consultations and turn them into transcripts and summaries",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadEnv()
	},
}

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		nameCmd(),
		recordCmd(),
		stopCmd(),
		processCmd(),
		uploadCmd(),
		cancelCmd(),
		statusCmd(),
		resultCmd(),
		watchCmd(),
		versionCmd(),
		quitCmd(),
		submitCmd(),
		listCmd(),
		showCmd(),
		deleteCmd(),
		loginCmd(),
		signupCmd(),
		logoutCmd(),
		profileCmd(),
		configureCmd(),
		doctorCmd(),
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := config.NewManager()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg := manager.GetConfig()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config (run `medivoice configure`): %w", err)
			}

			endpoint, err := bus.DefaultEndpoint()
			if err != nil {
				return fmt.Errorf("failed to resolve control socket: %w", err)
			}

			engine := pipeline.New(cfg.NewClient(), cfg.ToPolicy(), cfg.Results.RecentLimit)
			session := recording.NewSession(recording.NewRecorder(cfg.ToRecordingConfig()), cfg.ToRecordingConfig())

			d := daemon.New(endpoint, engine, session, cfg.NewNotifier())
			d.SetPaster(cfg.NewPaster())
			d.WatchConfig(manager)
			defer manager.Stop()

			return d.Run()
		},
	}
}

// send issues one control command and prints the reply payload.
func send(cmd byte, arg, failure string) error {
	resp, err := bus.SendCommand(cmd, arg)
	if err != nil {
		return fmt.Errorf("%s: %w", failure, err)
	}
	kind, payload, err := bus.ParseReply(resp)
	if err != nil {
		return err
	}
	if kind == "OK" {
		fmt.Println(tui.RenderSuccess(payload))
		return nil
	}
	fmt.Println(payload)
	return nil
}

func nameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "name [display name]",
		Short: "Set the consultation name used by the next recording",
		Long: `Set the display name for the next consultation, usually the patient's name.
Without an argument a prompt asks for it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			if strings.TrimSpace(name) == "" {
				var err error
				if name, err = tui.NamePrompt(); err != nil {
					return err
				}
			}
			return send(bus.CmdName, name, "failed to set name")
		},
	}
}

func recordCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Start recording from the microphone",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name != "" {
				if err := send(bus.CmdName, name, "failed to set name"); err != nil {
					return err
				}
			}
			return send(bus.CmdRecord, "", "failed to start recording")
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "consultation name to set before recording")

	return cmd
}

func stopCmd() *cobra.Command {
	var submit bool

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop recording and keep the audio for processing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := send(bus.CmdStop, "", "failed to stop recording"); err != nil {
				return err
			}
			if submit {
				return send(bus.CmdProcess, "", "failed to submit recording")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&submit, "process", "p", false, "submit the recording right away")

	return cmd
}

func processCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Submit the pending recording for transcription and summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(bus.CmdProcess, "", "failed to submit recording")
		},
	}
}

func uploadCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "upload <audio-file>",
		Short: "Submit an existing audio file through the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if name != "" {
				if err := send(bus.CmdName, name, "failed to set name"); err != nil {
					return err
				}
			}
			return send(bus.CmdUpload, path, "failed to upload file")
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "consultation name")

	return cmd
}

func cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Abort the recording or the submission in progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(bus.CmdCancel, "", "failed to cancel operation")
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get current daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdStatus, "")
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func resultCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "result",
		Short: "Show the outcome of the last submission",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdResult, "")
			if err != nil {
				return fmt.Errorf("failed to get result: %w", err)
			}
			_, payload, err := bus.ParseReply(resp)
			if err != nil {
				return err
			}
			if raw {
				fmt.Println(payload)
				return nil
			}
			var view daemon.ResultView
			if err := json.Unmarshal([]byte(payload), &view); err != nil {
				return fmt.Errorf("failed to decode result: %w", err)
			}
			fmt.Println(renderResult(view))
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "json", false, "print the raw JSON result")

	return cmd
}

func renderResult(view daemon.ResultView) string {
	var b strings.Builder
	switch {
	case view.Error != "":
		b.WriteString(tui.RenderError(errors.New(view.Error)))
		if view.Unauthorized {
			b.WriteString("\n" + tui.StyleWarning.Render("Session expired. Run `medivoice login` and submit again."))
		} else if view.TimedOut {
			b.WriteString("\n" + tui.StyleWarning.Render("The backend may still finish; check `medivoice list` later."))
		}
	case view.Details != nil:
		b.WriteString(tui.RenderDetails(*view.Details, 0))
		if len(view.Recent) > 0 {
			b.WriteString("\n\n" + tui.StyleHighlight.Render("Recent consultations") + "\n")
			b.WriteString(tui.RenderList(view.Recent))
		}
		if view.RefreshError != "" {
			b.WriteString("\n" + tui.StyleMuted.Render("Could not refresh list: "+view.RefreshError))
		}
	default:
		b.WriteString(tui.StyleMuted.Render("Status: " + string(view.Status)))
	}
	return b.String()
}

func watchCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the daemon until the current submission finishes",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := tui.Watch(fetchStatus, interval)
			if err != nil {
				return err
			}
			if snap.Status == string(pipeline.Failed) {
				return errors.New("processing failed, run `medivoice result` for details")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "status poll interval")

	return cmd
}

func fetchStatus() (tui.Snapshot, error) {
	resp, err := bus.SendCommand(bus.CmdStatus, "")
	if err != nil {
		return tui.Snapshot{}, fmt.Errorf("failed to get status: %w", err)
	}
	_, payload, err := bus.ParseReply(resp)
	if err != nil {
		return tui.Snapshot{}, err
	}
	return parseStatus(payload)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Get protocol version",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdVersion, "")
			if err != nil {
				return fmt.Errorf("failed to get version: %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func quitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quit",
		Short: "Stop the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(bus.CmdQuit, "", "failed to stop daemon")
		},
	}
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration editor for medivoice.
This covers:
- Backend URL and token
- Processing deadline and poll cadence
- Recording settings
- Notification preferences`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure()
		},
	}
}

func runConfigure() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := tui.Run(cfg)
	if err != nil {
		return fmt.Errorf("configuration editor error: %w", err)
	}
	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := result.Config.Validate(); err != nil {
		fmt.Printf("Configuration validation failed: %v\n", err)
		return err
	}
	if err := config.Save(result.Config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println(tui.RenderSuccess("Configuration saved"))
	fmt.Println()
	showNextSteps()
	return nil
}

func showNextSteps() {
	fmt.Println("Next Steps:")
	step := 1
	if _, err := bus.SendCommand(bus.CmdVersion, ""); err != nil {
		fmt.Printf("%d. Start the daemon: medivoice serve\n", step)
	} else {
		fmt.Printf("%d. The running daemon picks up the changes automatically\n", step)
	}
	step++
	fmt.Printf("%d. Sign in if needed: medivoice login\n", step)
	step++
	fmt.Printf("%d. Record a consultation: medivoice record -n \"Patient name\"\n", step)
	fmt.Println()

	configPath, _ := config.GetConfigPath()
	fmt.Printf("Config file location: %s\n", configPath)
}
