package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/medivoice/medivoice/internal/auth"
	"github.com/medivoice/medivoice/internal/backend"
	"github.com/medivoice/medivoice/internal/config"
	"github.com/medivoice/medivoice/internal/consult"
	"github.com/medivoice/medivoice/internal/paste"
	"github.com/medivoice/medivoice/internal/pipeline"
	"github.com/medivoice/medivoice/internal/tui"
)

// loadClient reads the config and builds a backend client from it.
func loadClient() (*config.Config, *backend.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config (run `medivoice configure`): %w", err)
	}
	return cfg, cfg.NewClient(), nil
}

func explain(err error) error {
	if errors.Is(err, consult.ErrUnauthorized) {
		return fmt.Errorf("%w (run `medivoice login`)", err)
	}
	return err
}

func submitCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "submit <audio-file>",
		Short: "Process an audio file without the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := loadClient()
			if err != nil {
				return err
			}
			blob, err := consult.LoadAudioFile(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				if name, err = tui.NamePrompt(); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			engine := pipeline.New(client, cfg.ToPolicy(), cfg.Results.RecentLimit)
			engine.OnStatus(func(s pipeline.Status) {
				fmt.Println(tui.StyleMuted.Render("… " + string(s)))
			})

			res, err := engine.Submit(ctx, blob, name)
			if err != nil {
				return explain(err)
			}
			fmt.Println()
			fmt.Println(tui.RenderDetails(res.Details, 0))
			if res.RefreshErr != nil {
				fmt.Println(tui.StyleMuted.Render("Could not refresh list: " + res.RefreshErr.Error()))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "consultation name")

	return cmd
}

func listCmd() *cobra.Command {
	var (
		limit  int
		search string
		sortBy string
		asc    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List consultations",
		Long:  `List consultations, newest first unless --sort or --asc say otherwise.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := loadClient()
			if err != nil {
				return err
			}
			items, err := client.List(cmd.Context())
			if err != nil {
				return explain(err)
			}
			items, err = arrangeList(items, search, sortBy, asc)
			if err != nil {
				return err
			}
			if limit > 0 && len(items) > limit {
				items = items[:limit]
			}
			fmt.Println(tui.RenderList(items))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "show at most this many (0 for all)")
	cmd.Flags().StringVarP(&search, "search", "s", "", "only consultations whose name contains this text")
	cmd.Flags().StringVar(&sortBy, "sort", "date", "sort by date or name")
	cmd.Flags().BoolVar(&asc, "asc", false, "ascending order")

	return cmd
}

// arrangeList filters by name (case-insensitive) and sorts. The input is not modified.
func arrangeList(items []consult.Summary, search, sortBy string, asc bool) ([]consult.Summary, error) {
	var cmp func(a, b consult.Summary) int
	switch sortBy {
	case "date", "":
		cmp = func(a, b consult.Summary) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case "name":
		cmp = func(a, b consult.Summary) int {
			return strings.Compare(strings.ToLower(a.DisplayName), strings.ToLower(b.DisplayName))
		}
	default:
		return nil, fmt.Errorf("unknown sort %q (use date or name)", sortBy)
	}

	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]consult.Summary, 0, len(items))
	for _, it := range items {
		if needle == "" || strings.Contains(strings.ToLower(it.DisplayName), needle) {
			out = append(out, it)
		}
	}
	slices.SortStableFunc(out, func(a, b consult.Summary) int {
		if asc {
			return cmp(a, b)
		}
		return cmp(b, a)
	})
	return out, nil
}

func showCmd() *cobra.Command {
	var copyText bool

	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show the transcript and summary of a consultation",
		Long:  `Show one consultation. Without an id, pick it from the list.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := loadClient()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var id consult.JobID
			if len(args) == 1 {
				id = consult.JobID(args[0])
			} else {
				picked, ok, err := pick(ctx, client, "Consultations")
				if err != nil || !ok {
					return err
				}
				id = picked.ID
			}

			details, err := client.Details(ctx, id)
			if err != nil {
				return explain(err)
			}
			fmt.Println(tui.RenderDetails(details, 0))

			if copyText {
				cp := paste.DefaultConfig()
				cp.Mode = paste.ModeClipboard
				if err := paste.New(cp).Paste(ctx, paste.Text(details)); err != nil {
					return err
				}
				fmt.Println(tui.RenderSuccess("Summary copied to clipboard"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&copyText, "copy", "c", false, "copy the summary to the clipboard")

	return cmd
}

func pick(ctx context.Context, client *backend.Client, title string) (consult.Summary, bool, error) {
	items, err := client.List(ctx)
	if err != nil {
		return consult.Summary{}, false, explain(err)
	}
	return tui.PickConsult(title, items, nil, nil)
}

func deleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a consultation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := loadClient()
			if err != nil {
				return err
			}
			var confirmer tui.Confirmer = tui.FormConfirmer{}
			if yes {
				confirmer = tui.AssumeYes{}
			}
			return runDelete(cmd.Context(), client, confirmer, args)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	return cmd
}

// consultStore is what the delete flow needs from the backend.
type consultStore interface {
	List(ctx context.Context) ([]consult.Summary, error)
	Delete(ctx context.Context, id consult.JobID) error
}

func runDelete(ctx context.Context, store consultStore, confirmer tui.Confirmer, args []string) error {
	var target consult.Summary
	if len(args) == 1 {
		target.ID = consult.JobID(args[0])
	} else {
		items, err := store.List(ctx)
		if err != nil {
			return explain(err)
		}
		picked, ok, err := tui.PickConsult("Delete which consultation?", items, nil, nil)
		if err != nil || !ok {
			return err
		}
		target = picked
	}

	label := string(target.ID)
	if target.DisplayName != "" {
		label = fmt.Sprintf("%s (%s)", target.DisplayName, target.ID)
	}
	ok, err := confirmer.Confirm("Delete consultation "+label+"?", "The transcript and summary are removed permanently.")
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Nothing deleted.")
		return nil
	}

	if err := store.Delete(ctx, target.ID); err != nil {
		return explain(err)
	}
	fmt.Println(tui.RenderSuccess("Deleted " + label))

	// the list is always re-read after a change
	items, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("deleted, but could not refresh list: %w", explain(err))
	}
	fmt.Println()
	fmt.Println(tui.RenderList(items))
	return nil
}

func loginCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := loadClient()
			if err != nil {
				return err
			}
			creds, err := tui.LoginForm(email)
			if err != nil {
				return err
			}
			token, err := client.Login(cmd.Context(), creds.Email, creds.Password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			store, err := auth.NewFile()
			if err != nil {
				return err
			}
			if err := store.Save(token); err != nil {
				return fmt.Errorf("failed to store token: %w", err)
			}
			fmt.Println(tui.RenderSuccess("Signed in as " + creds.Email))
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")

	return cmd
}

func signupCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := loadClient()
			if err != nil {
				return err
			}
			reg, err := tui.SignUpForm(email)
			if err != nil {
				return err
			}
			res, err := client.SignUp(cmd.Context(), backend.NewAccount{
				Name:      reg.Name,
				Email:     reg.Email,
				Password:  reg.Password,
				Specialty: reg.Specialty,
			})
			if err != nil {
				return fmt.Errorf("sign-up failed: %w", err)
			}

			store, err := auth.NewFile()
			if err != nil {
				return err
			}
			msg, err := finishSignUp(res, reg.Email, store)
			if err != nil {
				return err
			}
			fmt.Println(tui.RenderSuccess(msg))
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")

	return cmd
}

type tokenSaver interface {
	Save(token string) error
}

// finishSignUp stores the token when the backend signed the user in.
func finishSignUp(res backend.SignUpResult, email string, store tokenSaver) (string, error) {
	if res.Token == "" {
		msg := "Account created. Run `medivoice login` to sign in."
		if res.Message != "" {
			msg = res.Message + ". Run `medivoice login` to sign in."
		}
		return msg, nil
	}
	if err := store.Save(res.Token); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}
	return "Account created, signed in as " + email, nil
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := auth.NewFile()
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Println(tui.RenderSuccess("Signed out"))
			return nil
		},
	}
}

// accountReader is the part of the backend the profile command reads.
type accountReader interface {
	Profile(ctx context.Context) (consult.Profile, error)
	Stats(ctx context.Context) (consult.Stats, error)
}

func fetchAccount(ctx context.Context, r accountReader) (consult.Profile, consult.Stats, error) {
	var (
		profile consult.Profile
		stats   consult.Stats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = r.Profile(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = r.Stats(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return consult.Profile{}, consult.Stats{}, err
	}
	return profile, stats, nil
}

func profileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show account details and usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := loadClient()
			if err != nil {
				return err
			}
			profile, stats, err := fetchAccount(cmd.Context(), client)
			if err != nil {
				return explain(err)
			}
			fmt.Println(tui.RenderProfile(profile, stats))
			return nil
		},
	}
}
