package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pharmagarde/pharmagarde/internal/client"
	"github.com/pharmagarde/pharmagarde/internal/domain/establishment"
	"github.com/pharmagarde/pharmagarde/internal/geo"
)

// offlineFetcher never reaches the network. With --offline the controller
// falls straight back to the snapshot.
type offlineFetcher struct{}

func (offlineFetcher) ListEstablishments(context.Context, client.ListParams) ([]byte, []*establishment.Establishment, error) {
	return nil, nil, &client.ConnectivityError{Err: fmt.Errorf("offline mode")}
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List establishments, nearest first when a position is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			offline, _ := cmd.Flags().GetBool("offline")
			radius, _ := cmd.Flags().GetFloat64("radius")
			onDutyOnly, _ := cmd.Flags().GetBool("on-duty")

			near, err := positionFlags(cmd)
			if err != nil {
				return err
			}

			api, cfg, err := newAPI(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := client.OpenSnapshotStore(ctx, cfg.CachePath)
			if err != nil {
				return err
			}
			defer store.Close()

			var (
				fetcher client.Fetcher = api
				conn    client.Connectivity
			)
			if offline {
				fetcher = offlineFetcher{}
				conn = client.Static(false)
			} else {
				probe, err := client.NewProbe(api.BaseURL(), 2*time.Second)
				if err != nil {
					return fmt.Errorf("invalid API URL %q: %w", api.BaseURL(), err)
				}
				conn = probe
			}

			ctrl := client.NewController(fetcher, store, conn, radius)
			ctrl.OnPersistError(func(err error) {
				logger.Warn().Err(err).Msg("could not update the local cache")
			})

			if near != nil {
				err = ctrl.SetCoordinates(ctx, near)
			} else {
				err = ctrl.Reload(ctx)
			}
			if err != nil {
				return err
			}

			view := ctrl.View()
			items := view.Items
			if onDutyOnly {
				items = filterOnDuty(items)
			}
			if view.Stale {
				fmt.Fprintln(os.Stderr, client.OfflineBanner(view.LastUpdated, time.Now()))
			}
			renderList(os.Stdout, items)
			return nil
		},
	}
	cmd.Flags().Float64("lat", 0, "Your latitude")
	cmd.Flags().Float64("lon", 0, "Your longitude")
	cmd.Flags().Float64("radius", 0, "Only show establishments within this many km")
	cmd.Flags().Bool("on-duty", false, "Only show establishments on duty")
	cmd.Flags().Bool("offline", false, "Use the local cache without contacting the server")
	return cmd
}

// positionFlags returns nil when neither --lat nor --lon is set.
func positionFlags(cmd *cobra.Command) (*geo.Coordinates, error) {
	latSet := cmd.Flags().Changed("lat")
	lonSet := cmd.Flags().Changed("lon")
	if !latSet && !lonSet {
		return nil, nil
	}
	if latSet != lonSet {
		return nil, fmt.Errorf("--lat and --lon must be given together")
	}
	lat, _ := cmd.Flags().GetFloat64("lat")
	lon, _ := cmd.Flags().GetFloat64("lon")
	c := geo.Coordinates{Lat: lat, Lon: lon}
	if !c.Valid() {
		return nil, fmt.Errorf("position %g,%g is out of range", lat, lon)
	}
	return &c, nil
}

func filterOnDuty(items []*establishment.Establishment) []*establishment.Establishment {
	out := make([]*establishment.Establishment, 0, len(items))
	for _, e := range items {
		if e.OnDuty {
			out = append(out, e)
		}
	}
	return out
}

var typeLabels = map[establishment.Type]string{
	establishment.TypePharmacy:     "Pharmacie",
	establishment.TypeHospital:     "Hôpital",
	establishment.TypeHealthCenter: "Centre de santé",
}

func renderList(w io.Writer, items []*establishment.Establishment) {
	if len(items) == 0 {
		fmt.Fprintln(w, "Aucun établissement trouvé.")
		return
	}
	for _, e := range items {
		var tags []string
		if e.OnDuty {
			tags = append(tags, "DE GARDE")
		}
		if e.Open24h {
			tags = append(tags, "24h/24")
		}
		line := fmt.Sprintf("#%-4d %-16s %s", e.ID, typeLabels[e.Type], e.Name)
		if len(tags) > 0 {
			line += " [" + strings.Join(tags, ", ") + "]"
		}
		fmt.Fprintln(w, line)

		details := []string{e.Address, e.Phone}
		if e.Distance != nil {
			details = append(details, fmt.Sprintf("%.1f km", *e.Distance))
		}
		if len(e.Reviews) > 0 {
			details = append(details, fmt.Sprintf("%.1f/5 (%d avis)", e.AvgRating, len(e.Reviews)))
		}
		fmt.Fprintf(w, "      %s\n", strings.Join(details, " · "))
	}
}
