package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pharmagarde/pharmagarde/internal/client"
	"github.com/pharmagarde/pharmagarde/internal/domain/establishment"
	"github.com/pharmagarde/pharmagarde/internal/platform/apperr"
)

func parseIDArg(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid establishment id %q", arg)
	}
	return id, nil
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Set the on-duty flag of an establishment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("on-duty") {
				return fmt.Errorf("--on-duty=true|false is required")
			}
			onDuty, _ := cmd.Flags().GetBool("on-duty")

			api, _, err := newAPI(cmd)
			if err != nil {
				return err
			}
			if err := api.SetStatus(cmd.Context(), id, onDuty); err != nil {
				return err
			}
			if onDuty {
				fmt.Printf("Établissement #%d est maintenant de garde.\n", id)
			} else {
				fmt.Printf("Établissement #%d n'est plus de garde.\n", id)
			}
			return nil
		},
	}
	cmd.Flags().Bool("on-duty", false, "New on-duty status")
	return cmd
}

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review <id>",
		Short: "Rate an establishment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			rating, _ := cmd.Flags().GetInt("rating")
			req := &establishment.ReviewRequest{Rating: &rating}
			if cmd.Flags().Changed("comment") {
				comment, _ := cmd.Flags().GetString("comment")
				req.Comment = &comment
			}
			if err := req.Validate(); err != nil {
				return err
			}

			api, _, err := newAPI(cmd)
			if err != nil {
				return err
			}
			rv, err := api.AddReview(cmd.Context(), id, req)
			if err != nil {
				return err
			}
			fmt.Printf("Avis #%d enregistré (%d/5).\n", rv.ID, rv.Rating)
			return nil
		},
	}
	cmd.Flags().Int("rating", 0, "Rating from 1 to 5")
	cmd.Flags().String("comment", "", "Optional comment")
	return cmd
}

// loadImportFile reads a JSON array of establishments to create.
func loadImportFile(path string) ([]*establishment.CreateRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reqs []*establishment.CreateRequest
	if err := json.Unmarshal(raw, &reqs); err != nil {
		return nil, fmt.Errorf("%s: expected a JSON array of establishments: %w", path, err)
	}
	return reqs, nil
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Create every establishment listed in a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := loadImportFile(args[0])
			if err != nil {
				return err
			}
			api, _, err := newAPI(cmd)
			if err != nil {
				return err
			}

			created, failed := 0, 0
			for i, req := range reqs {
				if req == nil {
					req = &establishment.CreateRequest{}
				}
				if _, err := req.Validate(); err != nil {
					failed++
					reportImportError(i, err)
					continue
				}
				e, err := api.CreateEstablishment(cmd.Context(), req)
				if err != nil {
					var conn *client.ConnectivityError
					if errors.As(err, &conn) {
						return err
					}
					failed++
					reportImportError(i, err)
					continue
				}
				created++
				fmt.Printf("#%d %s\n", e.ID, e.Name)
			}

			fmt.Printf("%d établissement(s) importé(s), %d en erreur.\n", created, failed)
			if failed > 0 {
				return fmt.Errorf("%d of %d entries rejected", failed, len(reqs))
			}
			return nil
		},
	}
}

func reportImportError(index int, err error) {
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		for _, f := range verr.Fields {
			logger.Warn().Int("entry", index).Str("field", f.Field).Msg(f.Message)
		}
		return
	}
	logger.Warn().Int("entry", index).Err(err).Msg("import failed")
}
