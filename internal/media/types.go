// Package media defines shared types for the fetchbot application.
package media

import (
	"errors"
	"fmt"
	"strconv"
)

// Kind represents how a submitted URL is turned into playable media.
type Kind int

const (
	DirectFile Kind = iota
	PlatformDelegate
)

func (k Kind) String() string {
	switch k {
	case DirectFile:
		return "direct"
	case PlatformDelegate:
		return "platform"
	default:
		return "unknown"
	}
}

// Variant is one selectable video encoding.
type Variant struct {
	Height   int    // Pixel height, always > 0
	FormatID string // Extractor format identifier
	Ext      string // Container extension, e.g. "mp4"
	Size     int64  // Approximate size in bytes, 0 when unknown
}

// Descriptor is the resolved description of a submitted URL.
// It is built once per submission and never mutated afterwards.
type Descriptor struct {
	Kind        Kind
	Title       string
	Uploader    string
	Duration    int    // Seconds, 0 when unknown
	WebpageURL  string // Canonical page URL
	PlaybackURL string // Streamable URL, empty when none is known
	Ext         string // Extension of the default format
	Variants    []Variant
	Platform    string // Raw platform label derived from the page host
}

// VariantForHeight returns the variant with an exact height match.
func (d *Descriptor) VariantForHeight(height int) (Variant, bool) {
	if d == nil || height <= 0 {
		return Variant{}, false
	}
	for _, v := range d.Variants {
		if v.Height == height {
			return v, true
		}
	}
	return Variant{}, false
}

// TopVariants returns at most n variants from the head of the list.
func (d *Descriptor) TopVariants(n int) []Variant {
	if d == nil || n <= 0 {
		return nil
	}
	if len(d.Variants) < n {
		n = len(d.Variants)
	}
	return d.Variants[:n]
}

// Choice is what the user asked to receive.
// Height 0 means "auto": let the extractor pick its default format.
type Choice struct {
	Audio  bool
	Height int
}

// AudioChoice selects the audio branch.
func AudioChoice() Choice { return Choice{Audio: true} }

// VideoChoice selects the video branch at the given height (0 for auto).
func VideoChoice(height int) Choice { return Choice{Height: height} }

// Action returns the request action kind recorded for the choice.
func (c Choice) Action() string {
	if c.Audio {
		return "audio"
	}
	return "video"
}

// Quality returns the quality label recorded for the choice.
func (c Choice) Quality() string {
	switch {
	case c.Audio:
		return "audio"
	case c.Height > 0:
		return strconv.Itoa(c.Height) + "p"
	default:
		return "auto"
	}
}

// Reason tags why a request failed.
type Reason string

const (
	ReasonMalformedURL        Reason = "malformed-url"
	ReasonIdentityBanned      Reason = "identity-banned"
	ReasonDomainBlocked       Reason = "domain-blocked"
	ReasonExtractionFailed    Reason = "extraction-failed"
	ReasonAudioDownloadFailed Reason = "audio-download-failed"
	ReasonDownloadFailed      Reason = "download-failed"
	ReasonFileTooLarge        Reason = "file-too-large"
	ReasonSessionExpired      Reason = "session-expired"
	ReasonUnexpected          Reason = "unexpected"
)

// Failure is an error carrying a tagged Reason.
type Failure struct {
	Reason Reason
	Err    error
}

// Fail wraps err with a reason. err may be nil.
func Fail(reason Reason, err error) *Failure {
	return &Failure{Reason: reason, Err: err}
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Reason)
	}
	return fmt.Sprintf("%s: %v", f.Reason, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// ReasonOf extracts the tagged reason from err.
// Errors without a Failure in their chain are unexpected.
func ReasonOf(err error) Reason {
	if err == nil {
		return ""
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason
	}
	return ReasonUnexpected
}

// Status is the terminal state of a delivery.
type Status int

const (
	Succeeded Status = iota
	Failed
)

func (s Status) String() string {
	if s == Succeeded {
		return "success"
	}
	return "fail"
}

// Outcome is the result of one delivery attempt.
type Outcome struct {
	Status Status
	Reason Reason // Set when Status is Failed
	Err    error  // Underlying error, if any
	Bytes  int64  // Bytes uploaded from a local artifact, 0 for direct streaming
	Direct bool   // Delivered by handing the remote URL to the transport
}

// Success builds a successful outcome.
func Success(bytes int64, direct bool) Outcome {
	return Outcome{Status: Succeeded, Bytes: bytes, Direct: direct}
}

// FailureOutcome builds a failed outcome from an error, deriving its reason.
func FailureOutcome(err error) Outcome {
	return Outcome{Status: Failed, Reason: ReasonOf(err), Err: err}
}

// Detail returns a short error description for records, empty on success.
func (o Outcome) Detail() string {
	if o.Status == Succeeded {
		return ""
	}
	if o.Reason == ReasonFileTooLarge {
		return "file_too_large"
	}
	if o.Err != nil {
		return o.Err.Error()
	}
	return string(o.Reason)
}
