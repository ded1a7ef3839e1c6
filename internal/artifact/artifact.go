package artifact

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MaxUploadBytes is the default upload ceiling (25 MiB).
const MaxUploadBytes = 25 << 20

// Input is one uploaded audio artifact. It is read-only to the pipeline:
// created by the caller, validated, transcribed, and discarded after the run.
type Input struct {
	Name      string
	MediaType string
	Data      []byte
	// DeclaredBytes is the caller-declared payload size. When set it takes
	// precedence over len(Data), so a caller that caps its body read can
	// still report the true upload size.
	DeclaredBytes int64
}

// Size returns the declared payload size in bytes.
func (in Input) Size() int64 {
	if in.DeclaredBytes > 0 {
		return in.DeclaredBytes
	}
	return int64(len(in.Data))
}

// supportedTypes maps accepted MIME types (lowercased, parameters stripped).
var supportedTypes = map[string]bool{
	"audio/wav":   true,
	"audio/wave":  true,
	"audio/x-wav": true,
	"audio/mp3":   true,
	"audio/mpeg":  true,
	"audio/mp4":   true,
	"audio/m4a":   true,
	"audio/x-m4a": true,
	"audio/webm":  true,
	"audio/mpga":  true,
	"video/mp4":   true,
	"video/webm":  true,
}

// supportedExtensions maps accepted filename extensions (without dot).
var supportedExtensions = map[string]bool{
	"wav":  true,
	"mp3":  true,
	"mpeg": true,
	"mp4":  true,
	"m4a":  true,
	"webm": true,
	"mpga": true,
}

// Result is the outcome of validating one input artifact.
type Result struct {
	Valid             bool   `json:"valid"`
	Reason            string `json:"reason,omitempty"`
	MaxSizeExceeded   bool   `json:"max_size_exceeded,omitempty"`
	UnsupportedFormat bool   `json:"unsupported_format,omitempty"`
	ObservedBytes     int64  `json:"observed_bytes"`
	ObservedType      string `json:"observed_type,omitempty"`
}

// Validate checks an artifact's declared metadata against size and format
// constraints. Size is checked first; both checks are independent. Pure
// function: no I/O, deterministic for a given artifact.
func Validate(in Input, maxBytes int64) Result {
	if maxBytes <= 0 {
		maxBytes = MaxUploadBytes
	}

	res := Result{
		ObservedBytes: in.Size(),
		ObservedType:  in.MediaType,
	}

	if in.Size() > maxBytes {
		res.MaxSizeExceeded = true
		res.Reason = fmt.Sprintf("file size %d bytes exceeds maximum of %d bytes", in.Size(), maxBytes)
		return res
	}

	if !formatSupported(in) {
		res.UnsupportedFormat = true
		res.Reason = fmt.Sprintf("unsupported audio format (type %q, file %q)", in.MediaType, in.Name)
		return res
	}

	res.Valid = true
	return res
}

// formatSupported accepts an artifact when either its declared media type or
// its filename extension is in the supported set.
func formatSupported(in Input) bool {
	mt := strings.ToLower(strings.TrimSpace(in.MediaType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if supportedTypes[mt] {
		return true
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(in.Name), "."))
	return supportedExtensions[ext]
}
