package statestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/vk/ecow/internal/fingerprint"
)

const documentVersion = 1

// document is the serialised form shared by the File and S3 backends.
type document struct {
	Version      int             `json:"version"`
	Fingerprints fingerprint.Map `json:"fingerprints"`
}

func encodeDocument(m fingerprint.Map) ([]byte, error) {
	doc := document{Version: documentVersion, Fingerprints: m}
	if doc.Fingerprints == nil {
		doc.Fingerprints = fingerprint.Map{}
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func decodeDocument(data []byte) (fingerprint.Map, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, errors.New("invalid JSON: trailing content")
	}
	if doc.Version != documentVersion {
		return nil, fmt.Errorf("unsupported state version %d", doc.Version)
	}
	if doc.Fingerprints == nil {
		doc.Fingerprints = fingerprint.Map{}
	}
	return doc.Fingerprints, nil
}
