package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"gopkg.in/yaml.v3"
)

var errUndecodable = errors.New("no usable text encoding")

type textEncoding struct {
	name string
	enc  encoding.Encoding // nil means utf-8
}

// Hand-edited files on Chinese Windows hosts are frequently GBK.
var fileEncodings = []textEncoding{
	{name: "utf-8"},
	{name: "gbk", enc: simplifiedchinese.GBK},
	{name: "iso-8859-1", enc: charmap.ISO8859_1},
}

// decodeText converts raw file bytes to UTF-8 by trying each encoding in
// order. A candidate is rejected when it yields replacement characters the
// input did not already contain.
func decodeText(data []byte, log *zap.Logger) (string, error) {
	for _, fe := range fileEncodings {
		if fe.enc == nil {
			if utf8.Valid(data) {
				return string(data), nil
			}
			log.Debug("decode failed, trying next encoding", zap.String("encoding", fe.name))
			continue
		}
		out, err := fe.enc.NewDecoder().Bytes(data)
		if err != nil || strings.ContainsRune(string(out), utf8.RuneError) {
			log.Debug("decode failed, trying next encoding", zap.String("encoding", fe.name))
			continue
		}
		return string(out), nil
	}
	return "", errUndecodable
}

// readYAMLMap reads a YAML mapping document. A missing file returns
// (nil, nil); every other problem is returned as an error so callers can
// log it and fall back.
func readYAMLMap(path string, log *zap.Logger) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	text, err := decodeText(data, log)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}
