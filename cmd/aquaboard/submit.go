package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aquaguardian/aquaboard/internal/report"
	"github.com/aquaguardian/aquaboard/internal/session"
	"github.com/aquaguardian/aquaboard/internal/source"
)

func submitCmd() *cobra.Command {
	var (
		coords      string
		kind        string
		location    string
		description string
		severity    string
		file        string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a pollution report as the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}

			sev, err := report.ParseSeverity(severity)
			if err != nil {
				return err
			}

			lat, lng, err := report.ParseCoordinates(coords)
			if err != nil {
				return err
			}

			store, err := session.Open(cfg.Session)
			if err != nil {
				return err
			}

			user, err := store.Load()
			_ = store.Close()

			if errors.Is(err, session.ErrNoSession) {
				return errors.New("not signed in; run aquaboard login first")
			}

			if err != nil {
				return err
			}

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("opening attachment: %w", err)
			}
			defer f.Close()

			client := source.NewClient(log, cfg.Backend, nil)
			submitter := report.NewSubmitter(log, client, nil)

			created, err := submitter.Submit(cmd.Context(), &report.Report{
				UserID:      user.ID.String(),
				Latitude:    lat,
				Longitude:   lng,
				Type:        kind,
				Location:    location,
				Description: description,
				Severity:    sev,
				Attachment: &report.Attachment{
					Filename: file,
					Content:  f,
				},
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if created.Classified() {
				fmt.Fprintf(out, "Report %s verified by AI: %s (%.1f%% confidence)\n",
					created.ID, created.AIClass, *created.AIConfidence*100)
			} else {
				fmt.Fprintf(out, "Report %s submitted and awaiting review\n", created.ID)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&coords, "coords", "", `location as "lat, lng"`)
	cmd.Flags().StringVar(&kind, "type", "", "pollution type, e.g. Plastic Waste")
	cmd.Flags().StringVar(&location, "location", "", "place name")
	cmd.Flags().StringVar(&description, "description", "", "what you saw")
	cmd.Flags().StringVar(&severity, "severity", string(report.SeverityMedium), "Low, Medium, High or Critical")
	cmd.Flags().StringVar(&file, "file", "", "photo to attach")

	for _, name := range []string{"coords", "file"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}

	return cmd
}
