// Package atsh implements the AT shell: a small tool that drives scripted
// or interactive dialogues against an AT partner over any supported
// transport.
package atsh

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mysticpants/at"
	"github.com/mysticpants/at/engine"
	"github.com/mysticpants/at/utils/toolutils"
)

var flagUri string
var flagTimeout string

var CmdAtsh = &cobra.Command{
	Use:   "atsh",
	Short: "AT conversation shell",
}

var cmdRun = &cobra.Command{
	Use:   "run SCRIPT-FILE",
	Short: "Run a scripted dialogue",
	Args:  cobra.ExactArgs(1),
	Run:   runScript,
}

var cmdRepl = &cobra.Command{
	Use:   "repl",
	Short: "Interactive conversation: stdin lines are sent, tokens printed",
	Args:  cobra.NoArgs,
	Run:   runRepl,
}

func init() {
	CmdAtsh.PersistentFlags().StringVar(&flagUri, "uri", "", "Transport URI (tcp://, unix://, ws://, serial://)")
	CmdAtsh.PersistentFlags().StringVar(&flagTimeout, "timeout", "", "Default receive timeout")
	CmdAtsh.AddCommand(cmdRun, cmdRepl)
}

// open builds and opens the transport and conversation for one session.
func open(uri string) (at.Transport, at.Conversation) {
	if uri == "" {
		fmt.Fprintf(os.Stderr, "No transport URI given\n")
		os.Exit(1)
	}
	tp, err := engine.NewTransport(uri)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	conv := engine.NewBasicConversation(tp)
	if err := tp.Open(); err != nil {
		fmt.Fprintf(os.Stderr, "Unable to open %s: %v\n", tp, err)
		os.Exit(1)
	}
	return tp, conv
}

func runScript(cmd *cobra.Command, args []string) {
	var script Script
	toolutils.ReadYaml(&script, args[0])
	script.applyFlags(flagUri, flagTimeout)

	tp, conv := open(script.Uri)
	defer tp.Close()

	if err := script.Run(conv); err != nil {
		fmt.Fprintf(os.Stderr, "Script failed: %v\n", err)
		os.Exit(1)
	}
}

func runRepl(cmd *cobra.Command, args []string) {
	tp, conv := open(flagUri)
	defer tp.Close()

	conv.OnUnhandled(func(err error, data any) {
		if err != nil {
			fmt.Printf("err=%v\n", err)
			return
		}
		fmt.Printf("rx=%v\n", data)
	})

	sigChannel := make(chan os.Signal, 1)
	signal.Notify(sigChannel, os.Interrupt, syscall.SIGTERM)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			if line == "" {
				continue
			}
			if err := conv.ForceSend(line); err != nil {
				fmt.Printf("err=%v\n", err)
			}
		case <-sigChannel:
			return
		}
	}
}
