// Command decode prints the events carried by captured VAPIX metadata
// streams, one JSON object per line.
//
//	decode [-parse] [-tripped] [file ...]
//
// With no files it reads standard input.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/technosupport/vapix-events/internal/logger"
	"github.com/technosupport/vapix-events/internal/stream"
	"github.com/technosupport/vapix-events/internal/vapix/event"
)

func main() {
	parseOnly := flag.Bool("parse", false, "print the parsed notification instead of the event")
	trippedOnly := flag.Bool("tripped", false, "print tripped events only")
	flag.Parse()

	log, err := logger.New("warn", "console", "")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	out := json.NewEncoder(os.Stdout)
	handle := func(msg []byte) error {
		if *parseOnly {
			return out.Encode(event.Parse(msg))
		}
		ev := event.Decode(msg)
		if *trippedOnly && !ev.IsTripped {
			return nil
		}
		return out.Encode(ev)
	}

	if flag.NArg() == 0 {
		if err := stream.Split(os.Stdin, handle); err != nil {
			log.Fatal("decode stdin", zap.Error(err))
		}
		return
	}

	failed := false
	for _, name := range flag.Args() {
		f, err := os.Open(name)
		if err != nil {
			log.Error("open", zap.String("file", name), zap.Error(err))
			failed = true
			continue
		}
		err = stream.Split(f, handle)
		f.Close()
		if err != nil {
			log.Error("decode", zap.String("file", name), zap.Error(err))
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}
