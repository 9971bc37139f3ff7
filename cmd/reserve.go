package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/riicho/tvsub/mlsub"
)

var (
	reserveEID int64
	noConfirm  bool
)

// reserveCmd represents the reserve command
var reserveCmd = &cobra.Command{
	Use:   "reserve",
	Short: "Reserve a program for recording",
	Long: `Reserve one program, identified by network, channel SID and event
EID. The channel and its guide are re-fetched first so the reservation uses a
fresh reserve token; tokens shown by an earlier epg run may have expired.`,
	RunE: runReserve,
}

func init() {
	rootCmd.AddCommand(reserveCmd)
	reserveCmd.Flags().StringVarP(&networkName, "network", "n", "Kanto", "broadcast network")
	reserveCmd.Flags().Int64Var(&channelSID, "sid", 0, "channel SID")
	reserveCmd.Flags().Int64Var(&reserveEID, "eid", 0, "event EID")
	reserveCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "skip confirmation prompt")
	reserveCmd.MarkFlagRequired("sid")
	reserveCmd.MarkFlagRequired("eid")
}

func runReserve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	ch, err := findChannel(cmd, networkName, channelSID)
	if err != nil {
		return err
	}

	events, err := client.ChannelEvents(ctx, ch)
	if err != nil {
		return err
	}

	var target *mlsub.Event
	for i := range events {
		if events[i].EID == reserveEID {
			target = &events[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("no event with EID %d on %s", reserveEID, ch.Service)
	}

	fmt.Printf("\n%s\n", target.Name)
	fmt.Printf("  %s %s · %d min · %s · %.1f円\n",
		target.StartDate.Format("2006-01-02"), target.StartTime.Format("15:04"),
		target.Duration, target.Service, target.Price)

	if !noConfirm {
		fmt.Printf("\nReserve this program? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if strings.ToLower(strings.TrimSpace(response)) != "y" {
			logger.Info().Msg("Reservation cancelled")
			return nil
		}
	}

	res, err := client.SubscribeEvent(ctx, *target)
	if err != nil {
		return err
	}

	fmt.Printf("\n✓ Reserved %s (reservation %d, order %d)\n", res.Service, res.ResID, res.OrderID)
	switch {
	case !res.Recorded():
		fmt.Println("✗ Upstream marked the reservation invalid")
	case len(res.Servers()) == 0:
		fmt.Println("  Recorded in database; no recording server assigned yet")
	default:
		fmt.Printf("  Recording servers: %s\n", strings.Join(res.Servers(), ", "))
	}
	return nil
}
