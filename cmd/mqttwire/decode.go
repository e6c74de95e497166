package main

import (
	"bytes"
	"encoding/hex"
	"io"
	"unicode"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/bytebufferpool"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	mqtt "github.com/soypat/mqttwire"
	"github.com/soypat/mqttwire/internal/config"
	"github.com/soypat/mqttwire/internal/document"
	"github.com/soypat/mqttwire/internal/stream"
)

// runDecode decodes every input concurrently and writes the documents in input order.
func runDecode(cfg *config.Config, files []string, stdin io.Reader, stdout io.Writer) error {
	ins := inputs(files, stdin)
	outs := make([]*bytebufferpool.ByteBuffer, len(ins))
	errs := make([]error, len(ins))
	defer func() {
		for _, out := range outs {
			if out != nil {
				bytebufferpool.Put(out)
			}
		}
	}()

	var g errgroup.Group
	g.SetLimit(cfg.Decode.Workers)
	for i, in := range ins {
		i, in := i, in
		outs[i] = bytebufferpool.Get()
		g.Go(func() error {
			errs[i] = decodeInput(cfg, in, outs[i])
			return nil
		})
	}
	_ = g.Wait()

	var err error
	for i, in := range ins {
		if len(ins) > 1 && cfg.Decode.Format == config.FormatText {
			io.WriteString(stdout, "==> "+in.name+" <==\n")
		}
		if _, werr := outs[i].WriteTo(stdout); werr != nil {
			return multierr.Append(err, werr)
		}
		err = multierr.Append(err, withInput(errs[i], in.name))
	}
	return err
}

func decodeInput(cfg *config.Config, in input, out io.Writer) error {
	rc, err := in.open()
	if err != nil {
		return err
	}
	defer rc.Close()

	var r io.Reader = rc
	if cfg.Decode.Hex {
		raw, err := readHex(rc)
		if err != nil {
			return err
		}
		r = bytes.NewReader(raw)
	}

	enc, err := document.NewEncoder(out, cfg.Decode.Format)
	if err != nil {
		return err
	}
	logger := log.WithField("input", in.name)
	rx := stream.NewRx(r, cfg.Decode.UserBuffer)
	rx.Resync = cfg.Decode.Resync
	rx.Log = logger
	var packets int
	rx.OnPacket = func(_ *stream.Rx, p mqtt.Packet) error {
		packets++
		lintFilters(logger.WithField("offset", rx.Offset()), p)
		return enc.Encode(document.FromPacket(p))
	}
	err = rx.ReadAll()
	logger.WithFields(log.Fields{
		"packets": packets,
		"bytes":   rx.Offset(),
	}).Info("decoded")
	return err
}

// lintFilters warns about SUBSCRIBE and UNSUBSCRIBE topic filters that a
// server would reject. They decode fine since wildcard placement is not
// checked by the codec.
func lintFilters(logger log.FieldLogger, p mqtt.Packet) {
	var filters [][]byte
	switch p := p.(type) {
	case mqtt.Subscribe:
		for _, req := range p.TopicFilters {
			filters = append(filters, req.TopicFilter)
		}
	case mqtt.Unsubscribe:
		filters = p.Topics
	}
	for _, filter := range filters {
		if err := mqtt.ValidateTopicFilter(filter); err != nil {
			logger.WithField("type", p.Type().String()).WithError(err).Warn("invalid topic filter")
		}
	}
}

// readHex reads hexadecimal text, ignoring whitespace.
func readHex(r io.Reader) ([]byte, error) {
	text, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "error reading input")
	}
	text = bytes.Map(func(c rune) rune {
		if unicode.IsSpace(c) {
			return -1
		}
		return c
	}, text)
	raw := make([]byte, hex.DecodedLen(len(text)))
	if _, err = hex.Decode(raw, text); err != nil {
		return nil, errors.Wrap(err, "invalid hex input")
	}
	return raw, nil
}
