package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/riicho/tvsub/mlsub"
)

var (
	ordersIndex   int
	ordersCount   int
	ordersOrder   string
	ordersDate    string
	ordersKeyword string
)

// userinfoCmd represents the userinfo command
var userinfoCmd = &cobra.Command{
	Use:   "userinfo",
	Short: "Show account information",
	RunE:  runUserinfo,
}

// ordersCmd represents the orders command
var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List reservation orders",
	Long: `List your reservation orders, newest first by default. The date and
keyword filters are forwarded to the service but are currently ignored
upstream.`,
	RunE: runOrders,
}

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the session is online",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(userinfoCmd)

	rootCmd.AddCommand(ordersCmd)
	ordersCmd.Flags().IntVar(&ordersIndex, "index", 1, "starting page")
	ordersCmd.Flags().IntVar(&ordersCount, "count", 15, "number of orders")
	ordersCmd.Flags().StringVar(&ordersOrder, "order", "DESC", "sort order (ASC or DESC)")
	ordersCmd.Flags().StringVar(&ordersDate, "date", "", "filter by air date")
	ordersCmd.Flags().StringVar(&ordersKeyword, "keyword", "", "filter by keyword")

	rootCmd.AddCommand(statusCmd)
}

func runUserinfo(cmd *cobra.Command, args []string) error {
	info, err := client.UserInfo(cmd.Context())
	if err != nil {
		return err
	}

	// The password comes back in the payload; it stays unprinted.
	fmt.Printf("User:    %s (ID %d)\n", info.Username, info.ID)
	fmt.Printf("Email:   %s\n", info.Email)
	fmt.Printf("Wallet:  %s\n", info.Wallet)
	if info.Online == mlsub.UserOnline {
		fmt.Println("Online:  yes")
	} else {
		fmt.Println("Online:  no")
	}
	if info.LastTime != nil {
		fmt.Printf("Last login: %s", info.LastTime.Format("2006-01-02 15:04:05"))
		if info.LastIP != nil {
			fmt.Printf(" from %s", *info.LastIP)
		}
		fmt.Println()
	}
	if info.TimesDraw != nil {
		fmt.Printf("Lottery draws left: %s\n", *info.TimesDraw)
	}
	return nil
}

func runOrders(cmd *cobra.Command, args []string) error {
	env, err := client.Orders(cmd.Context(), mlsub.OrdersQuery{
		Index:   ordersIndex,
		Count:   ordersCount,
		Order:   mlsub.SortOrder(ordersOrder),
		AirDate: ordersDate,
		Keyword: ordersKeyword,
	})
	if err != nil {
		return err
	}

	list, _ := env["reservations"].([]any)
	if len(list) == 0 {
		fmt.Println("No orders found.")
		return nil
	}

	fmt.Printf("Orders (page %d, %d shown):\n", ordersIndex, len(list))
	fmt.Println(strings.Repeat("-", 80))
	for _, item := range list {
		order, ok := item.(map[string]any)
		if !ok {
			continue
		}
		// This endpoint's shape is unstable; print the stable keys only.
		fmt.Printf("• #%v %v\n", order["orderid"], order["title"])
		fmt.Printf("  %v · %v · %v min · %v円\n",
			order["service"], order["starttime"], order["duration"], order["price"])
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	online, err := client.IsOnline(cmd.Context())
	if err != nil {
		return err
	}
	if online {
		fmt.Println("✓ Session is online")
	} else {
		fmt.Println("✗ Session is offline or token expired")
	}
	return nil
}
