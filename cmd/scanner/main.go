package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"
	"github.com/wb-go/wbf/zlog"

	"eventpass/cmd/middleware"
	"eventpass/internal/pass"
	"eventpass/internal/scanner"
)

func main() {
	zlog.Init()
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scanner",
		Short:         "Door-side attendance scanner for eventpass",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(runCmd(), decodeCmd(), tokenCmd())
	return root
}

func runCmd() *cobra.Command {
	var (
		server, event, token, frames string
		interval, timeout            time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scan passes from camera frames and check attendees in",
		Long: "Samples the newest frame in --frames, resolves any pass found and waits for a decision.\n" +
			"Commands on stdin: 'c' confirms check-in, 'x' clears the result, anything else is looked up as a code.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if event == "" {
				return errors.New("--event is required")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log := zlog.Logger
			out := cmd.OutOrStdout()
			client := scanner.NewAPIClient(server, event, token, timeout)
			sc := scanner.New(scanner.OpenDir(frames), client, &log,
				scanner.WithInterval(interval),
				scanner.OnChange(func(st scanner.State) { printState(out, st) }),
			)

			loopDone := make(chan struct{})
			go func() {
				defer close(loopDone)
				if err := sc.Run(ctx); err != nil {
					fmt.Fprintln(out, "camera unavailable, manual entry only")
				}
			}()

			lines := make(chan string)
			go func() {
				in := bufio.NewScanner(cmd.InOrStdin())
				for in.Scan() {
					lines <- strings.TrimSpace(in.Text())
				}
				close(lines)
			}()

			for {
				select {
				case <-ctx.Done():
					<-loopDone
					return nil
				case line, ok := <-lines:
					if !ok {
						stop()
						<-loopDone
						return nil
					}
					handleLine(ctx, sc, line, out)
				}
			}
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "eventpass server base URL")
	cmd.Flags().StringVar(&event, "event", "", "event id to check attendees into")
	cmd.Flags().StringVar(&token, "token", os.Getenv("EVENTPASS_TOKEN"), "organizer bearer token")
	cmd.Flags().StringVar(&frames, "frames", "frames", "directory the capture tool writes frames into")
	cmd.Flags().DurationVar(&interval, "interval", scanner.DefaultInterval, "frame sampling interval")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "server request timeout")
	return cmd
}

func handleLine(ctx context.Context, sc *scanner.Scanner, line string, out io.Writer) {
	switch line {
	case "":
		return
	case "c":
		res, err := sc.ConfirmCheckIn(ctx)
		if err != nil {
			fmt.Fprintln(out, "check-in failed:", err)
			return
		}
		fmt.Fprintln(out, res.Message)
	case "x":
		sc.Clear()
		fmt.Fprintln(out, "cleared, scanning")
	default:
		if err := sc.Submit(ctx, line); err != nil {
			fmt.Fprintln(out, "lookup failed:", err)
		}
	}
}

func printState(out io.Writer, st scanner.State) {
	switch {
	case st.Pending:
		fmt.Fprintln(out, "...")
	case st.Current == nil:
		return
	case st.Current.Registration != nil:
		r := st.Current.Registration
		fmt.Fprintf(out, "%s <%s> status=%s attended=%v", r.StudentName, r.StudentEmail, r.Status, r.Attended)
		if st.CanCheckIn() {
			fmt.Fprint(out, "  [c] check in")
		}
		fmt.Fprintln(out, "  [x] clear")
	case st.Current.Manual != nil:
		m := st.Current.Manual
		fmt.Fprintf(out, "manual pass: %s <%s> for %s  [x] clear\n", m.StudentName, m.StudentEmail, m.EventName)
	default:
		fmt.Fprintf(out, "%s  [x] clear\n", st.Message)
	}
}

func decodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <image>...",
		Short: "Decode pass QR codes from image files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, path := range args {
				img, err := imaging.Open(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				text, err := pass.ReadImage(img)
				if err != nil {
					fmt.Fprintf(out, "%s: no code\n", path)
					continue
				}
				p, err := pass.Decode(text)
				if err != nil {
					fmt.Fprintf(out, "%s: invalid pass (%v)\n", path, err)
					continue
				}
				switch p.Kind {
				case pass.ManualSnapshot:
					fmt.Fprintf(out, "%s: %s %s <%s> %s\n", path, p.Kind, p.Manual.StudentName, p.Manual.StudentEmail, p.Manual.EventName)
				default:
					fmt.Fprintf(out, "%s: %s %s\n", path, p.Kind, p.RegistrationID)
				}
			}
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	var secret, subject, role string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an organizer token for the door laptop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				return errors.New("--secret is required")
			}
			tok, err := middleware.IssueToken(secret, subject, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("EVENTPASS_JWT_SECRET"), "auth.jwt_secret of the server")
	cmd.Flags().StringVar(&subject, "subject", "door", "organizer identity")
	cmd.Flags().StringVar(&role, "role", middleware.RoleOrganizer, "organizer or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	return cmd
}
