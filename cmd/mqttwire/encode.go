package main

import (
	"io"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	mqtt "github.com/soypat/mqttwire"
	"github.com/soypat/mqttwire/internal/config"
	"github.com/soypat/mqttwire/internal/document"
	"github.com/soypat/mqttwire/internal/stream"
)

// runEncode reads documents from every input in order and writes the encoded
// packets to stdout. It stops at the first document that fails to encode.
func runEncode(cfg *config.Config, files []string, stdin io.Reader, stdout io.Writer) error {
	tx := stream.NewTx(stdout, cfg.Encode.Buffer, cfg.Encode.Hex)
	var packets int
	for _, in := range inputs(files, stdin) {
		n, err := encodeInput(cfg, in, tx)
		packets += n
		if err != nil {
			return withInput(err, in.name)
		}
	}
	log.WithFields(log.Fields{
		"packets": packets,
		"bytes":   tx.Written(),
		"backing": mqtt.Backing,
	}).Info("encoded")
	return nil
}

func encodeInput(cfg *config.Config, in input, tx *stream.Tx) (packets int, err error) {
	rc, err := in.open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	dec, err := document.NewDecoder(rc, cfg.Encode.Format)
	if err != nil {
		return 0, err
	}
	for {
		d, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return packets, nil
		} else if err != nil {
			return packets, errors.Wrapf(err, "document %d", packets)
		}
		p, err := d.Packet()
		if err == nil {
			_, err = tx.WritePacket(p)
		}
		if err != nil {
			return packets, errors.WithMessagef(err, "document %d (%s)", packets, d.Type)
		}
		packets++
	}
}
