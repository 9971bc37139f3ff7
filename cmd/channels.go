package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/riicho/tvsub/filter"
	"github.com/riicho/tvsub/mlsub"
)

var (
	networkName string
	allNetworks bool
	channelSID  int64
	filterExpr  string
)

// channelsCmd represents the channels command
var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List channels of a broadcast network",
	Long: `List the channels of one broadcast network, or of every network
with --all. Satellite channels additionally show their TSID.`,
	RunE: runChannels,
}

// epgCmd represents the epg command
var epgCmd = &cobra.Command{
	Use:   "epg",
	Short: "Show the program guide of a channel",
	Long: `Fetch the EPG of one channel, identified by network and SID. The
channel list is fetched first to obtain a fresh EPG token.

An optional --filter expression narrows the guide, e.g.:

  tvsub epg -n Kanto --sid 1056 --filter 'Category == "anime" && Price < 5'`,
	RunE: runEPG,
}

func init() {
	rootCmd.AddCommand(channelsCmd)
	channelsCmd.Flags().StringVarP(&networkName, "network", "n", "Kanto", "broadcast network")
	channelsCmd.Flags().BoolVar(&allNetworks, "all", false, "list every network")

	rootCmd.AddCommand(epgCmd)
	epgCmd.Flags().StringVarP(&networkName, "network", "n", "Kanto", "broadcast network")
	epgCmd.Flags().Int64Var(&channelSID, "sid", 0, "channel SID")
	epgCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression")
	epgCmd.MarkFlagRequired("sid")
}

func runChannels(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if allNetworks {
		networks := mlsub.Networks()
		results := make([][]mlsub.Channel, len(networks))

		g, gctx := errgroup.WithContext(ctx)
		for i, network := range networks {
			i, network := i, network
			g.Go(func() error {
				channels, err := client.Channels(gctx, network)
				if err != nil {
					return fmt.Errorf("%s: %w", network, err)
				}
				results[i] = channels
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for i, network := range networks {
			printChannels(network, results[i])
		}
		return nil
	}

	network, err := mlsub.ParseNetwork(networkName)
	if err != nil {
		return err
	}
	channels, err := client.Channels(ctx, network)
	if err != nil {
		return err
	}
	printChannels(network, channels)
	return nil
}

func printChannels(network mlsub.Network, channels []mlsub.Channel) {
	fmt.Printf("\n%s (%s): %d channels\n", network, network.Label(), len(channels))
	fmt.Println(strings.Repeat("-", 60))
	for _, ch := range channels {
		fmt.Printf("• %s (SID %d", ch.Service, ch.SID)
		if ch.TSID != nil {
			fmt.Printf(", TSID %d", *ch.TSID)
		}
		fmt.Println(")")
	}
}

func runEPG(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	ch, err := findChannel(cmd, networkName, channelSID)
	if err != nil {
		return err
	}

	events, err := client.ChannelEvents(ctx, ch)
	if err != nil {
		return err
	}

	if filterExpr != "" {
		f, err := filter.Compile(filterExpr)
		if err != nil {
			return fmt.Errorf("invalid filter expression: %w", err)
		}
		events, err = f.Apply(events)
		if err != nil {
			return err
		}
	}

	if len(events) == 0 {
		fmt.Println("No programs found.")
		return nil
	}

	fmt.Printf("\n%s: %d programs\n", ch.Service, len(events))
	fmt.Println(strings.Repeat("-", 80))
	for _, ev := range events {
		fmt.Printf("%s %s  %s\n", ev.StartDate.Format("2006-01-02"), ev.StartTime.Format("15:04"), ev.Name)
		fmt.Printf("  EID %d · %s · %d min · %s · %.1f円\n", ev.EID, ev.Category, ev.Duration, ev.Resolution, ev.Price)
	}
	return nil
}

// findChannel fetches the channel list, which also refreshes the short-lived
// EPG tokens, and locates one channel by SID.
func findChannel(cmd *cobra.Command, networkName string, sid int64) (mlsub.Channel, error) {
	network, err := mlsub.ParseNetwork(networkName)
	if err != nil {
		return mlsub.Channel{}, err
	}

	channels, err := client.Channels(cmd.Context(), network)
	if err != nil {
		return mlsub.Channel{}, err
	}
	for _, ch := range channels {
		if ch.SID == sid {
			return ch, nil
		}
	}
	return mlsub.Channel{}, fmt.Errorf("no channel with SID %d on %s", sid, network)
}
