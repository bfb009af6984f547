package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
)

func main() {
	fix := flag.Bool("fix", false, "reset the group cursor to re-deliver the whole stream")
	flag.Parse()

	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to redis: %v\n", err)
		os.Exit(1)
	}

	if *fix {
		if err := rdb.XGroupSetID(ctx, "number_stream", "consumer_group", "0").Err(); err != nil {
			fmt.Printf("Fix failed: %v\n", err)
		} else {
			fmt.Println("Group cursor reset to 0; all entries will be re-delivered")
		}
	}

	length, _ := rdb.XLen(ctx, "number_stream").Result()
	fmt.Printf("--- Stream ---\nLength: %d\n", length)

	fmt.Println("\n--- Groups ---")
	groups, _ := rdb.XInfoGroups(ctx, "number_stream").Result()
	for _, g := range groups {
		fmt.Printf("Group: %s | Consumers: %d | Pending: %d | LastDelivered: %s\n",
			g.Name, g.Consumers, g.Pending, g.LastDeliveredID)
	}

	fmt.Println("\n--- Last entries ---")
	msgs, _ := rdb.XRevRangeN(ctx, "number_stream", "+", "-", 5).Result()
	for _, m := range msgs {
		fmt.Printf("ID: %s | Data: %v\n", m.ID, m.Values["data"])
	}
}
