// Command mqttwire decodes MQTT 3.1.1 packet streams into readable documents
// and encodes documents back into packets.
//
//	mqttwire [-c config.json] [-log-level debug] decode [-hex] [-format text|json|msgpack] [-resync] [file...]
//	mqttwire [-c config.json] encode [-hex] [-format json|msgpack] [file...]
//
// Standard input is read when no files are given.
package main

import (
	"flag"
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/soypat/mqttwire/internal/config"
)

var errUsage = errors.New("usage: mqttwire [-c config.json] [-log-level level] decode|encode [flags] [file...]")

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("mqttwire", flag.ContinueOnError)
	cnfFlag := fs.String("c", "", "Path of config file.")
	lvlFlag := fs.String("log-level", "", "Log level: error, warn, info or debug.")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if *cnfFlag != "" {
		if err := cfg.LoadFromFile(*cnfFlag); err != nil {
			return err
		}
	}
	if *lvlFlag != "" {
		cfg.Log.Level = *lvlFlag
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	var runCmd func(*config.Config, []string, io.Reader, io.Writer) error
	sub := flag.NewFlagSet(cmd, flag.ContinueOnError)
	switch cmd {
	case "decode":
		sub.StringVar(&cfg.Decode.Format, "format", cfg.Decode.Format, "Output format: text, json or msgpack.")
		sub.BoolVar(&cfg.Decode.Hex, "hex", cfg.Decode.Hex, "Input is hexadecimal text.")
		sub.BoolVar(&cfg.Decode.Resync, "resync", cfg.Decode.Resync, "Skip undecodable packets instead of stopping.")
		sub.IntVar(&cfg.Decode.UserBuffer, "buffer", cfg.Decode.UserBuffer, "Largest packet size in bytes.")
		sub.IntVar(&cfg.Decode.Workers, "workers", cfg.Decode.Workers, "Files decoded concurrently.")
		runCmd = runDecode
	case "encode":
		sub.StringVar(&cfg.Encode.Format, "format", cfg.Encode.Format, "Input document format: json or msgpack.")
		sub.BoolVar(&cfg.Encode.Hex, "hex", cfg.Encode.Hex, "Write hexadecimal text, one packet per line.")
		sub.IntVar(&cfg.Encode.Buffer, "buffer", cfg.Encode.Buffer, "Initial encode buffer size in bytes.")
		runCmd = runEncode
	default:
		return errors.WithMessagef(errUsage, "unknown command %q", cmd)
	}
	if err := sub.Parse(cmdArgs); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	setupLogging(cfg)
	if *cnfFlag != "" {
		log.Infoln("Using config file:", *cnfFlag)
	}
	return runCmd(cfg, sub.Args(), stdin, stdout)
}

func setupLogging(cfg *config.Config) {
	if cfg.Log.File != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			Compress:   cfg.Log.Compress,
		})
	}
	switch cfg.Log.Level {
	case "error":
		log.SetLevel(log.ErrorLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	}
}

// input is a named source of bytes.
type input struct {
	name string
	open func() (io.ReadCloser, error)
}

func inputs(files []string, stdin io.Reader) []input {
	if len(files) == 0 {
		return []input{{name: "stdin", open: func() (io.ReadCloser, error) { return io.NopCloser(stdin), nil }}}
	}
	ins := make([]input, len(files))
	for i, name := range files {
		name := name
		ins[i] = input{name: name, open: func() (io.ReadCloser, error) {
			f, err := os.Open(name)
			if err != nil {
				return nil, errors.Wrap(err, "error opening input")
			}
			return f, nil
		}}
	}
	return ins
}

func withInput(err error, name string) error {
	return errors.WithMessage(err, name)
}
