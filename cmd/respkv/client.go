package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/raniellyferreira/respkv/command"
	"github.com/raniellyferreira/respkv/protocol"
	"github.com/raniellyferreira/respkv/session"
)

// setupClientFlags adds the connection flags shared by client commands
func setupClientFlags(cmd *cobra.Command) {
	key := "addr"
	cmd.Flags().String(key, "127.0.0.1:6379", "Address of the respkv node")

	key = "timeout"
	cmd.Flags().Duration(key, 5*time.Second, "Timeout for the whole exchange")
}

func newPingCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ping [message]",
		Short: "Send PING to a node and print the reply",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ping := &command.Ping{}
			if len(args) == 1 {
				ping.Message = []byte(args[0])
			}
			reply, err := roundtrip(cmd, v, ping)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatReply(reply))
			return nil
		},
	}
	setupClientFlags(cmd)
	return cmd
}

func newInfoCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print the replication section of INFO",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reply, err := roundtrip(cmd, v, &command.Info{Section: command.InfoReplication})
			if err != nil {
				return err
			}
			if reply.IsError() {
				return fmt.Errorf("server replied: %s", reply.Error())
			}
			fields := parseInfo(string(reply.Data))
			for _, key := range []string{"role", "master_replid", "master_repl_offset"} {
				if value, ok := fields[key]; ok {
					fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", key, value)
				}
			}
			return nil
		},
	}
	setupClientFlags(cmd)
	return cmd
}

// roundtrip dials the configured node, sends c and reads one reply
func roundtrip(cmd *cobra.Command, v *viper.Viper, c command.Command) (protocol.Value, error) {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return protocol.Value{}, err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), v.GetDuration("timeout"))
	defer cancel()

	addr := v.GetString("addr")
	sess, err := session.Dial(ctx, addr)
	if err != nil {
		return protocol.Value{}, fmt.Errorf("connect to %s: %w", addr, err)
	}
	defer sess.Close()

	// Unblock the exchange when the timeout fires
	stop := context.AfterFunc(ctx, func() { sess.Close() })
	defer stop()

	reply, err := sess.Roundtrip(c)
	if err != nil {
		if ctx.Err() != nil {
			return protocol.Value{}, ctx.Err()
		}
		return protocol.Value{}, err
	}
	return reply, nil
}

// parseInfo splits an INFO payload into its key:value fields
func parseInfo(payload string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if key, value, ok := strings.Cut(line, ":"); ok {
			fields[key] = value
		}
	}
	return fields
}

// formatReply renders a reply the way redis-cli does
func formatReply(v protocol.Value) string {
	switch {
	case v.IsNull:
		return "(nil)"
	case v.Type == protocol.TypeError:
		return "(error) " + v.Error()
	case v.Type == protocol.TypeInteger:
		return fmt.Sprintf("(integer) %d", v.Integer)
	case v.Type == protocol.TypeArray:
		parts := make([]string, len(v.Array))
		for i, item := range v.Array {
			parts[i] = fmt.Sprintf("%d) %s", i+1, formatReply(item))
		}
		return strings.Join(parts, "\n")
	case v.Type == protocol.TypeBulkString:
		return fmt.Sprintf("%q", v.Data)
	default:
		return string(v.Data)
	}
}
