package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shenjiangwei/earlyAllocator/rpc"
)

func init() {
	rootCmd.AddCommand(newServeCmd())
}

func newServeCmd() *cobra.Command {
	var (
		address string
		start   uint64
		size    uint64
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an arena over RPC",
		Long: `The serve command manages the address range [start, start+size) and
answers byte and page allocation requests from rpc clients until interrupted.

Example:
  earlyalloc serve --addr localhost:1234 --start 0x80000000 --size 0x1000000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := rpc.NewServer(uintptr(pageSize), start, size)
			if err != nil {
				return err
			}
			listener, err := net.Listen("tcp", address)
			if err != nil {
				return fmt.Errorf("failed to start server: %w", err)
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sig)
			go func() {
				<-sig
				server.Close()
			}()

			printInfo("Serving arena [%#x, %#x) on %s\n", start, start+size, listener.Addr())
			return server.Serve(listener)
		},
	}
	cmd.Flags().StringVar(&address, "addr", "localhost:1234", "Listen address")
	cmd.Flags().Uint64Var(&start, "start", 0x8000_0000, "First address of the arena")
	cmd.Flags().Uint64Var(&size, "size", 16<<20, "Arena size in bytes")
	return cmd
}
