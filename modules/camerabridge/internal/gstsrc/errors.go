package gstsrc

import (
	"strings"

	"github.com/rmussadi/userland/modules/camerabridge"
	"github.com/tinyzimmer/go-gst/gst"
)

// ClassifyGStreamerError categorizes a GStreamer bus error for telemetry.
//
// go-gst's GError does not expose the error domain, so classification is
// keyword matching on the message and debug string.
func ClassifyGStreamerError(gerr *gst.GError) camerabridge.ErrorCategory {
	if gerr == nil {
		return camerabridge.ErrCategoryUnknown
	}
	return classifyMessage(gerr.Error(), gerr.DebugString())
}

var (
	negotiationKeywords = []string{
		"not negotiated",
		"negotiation",
		"caps",
		"format",
		"could not link",
	}
	resourceKeywords = []string{
		"busy",
		"permission",
		"denied",
		"memory",
		"allocate",
		"no space",
	}
	deviceKeywords = []string{
		"device",
		"v4l2",
		"camera",
		"could not open",
		"no such file",
		"not found",
		"failed to read",
	}
)

// classifyMessage checks keyword groups from most to least specific
func classifyMessage(errMsg, debugStr string) camerabridge.ErrorCategory {
	combined := strings.ToLower(errMsg + " " + debugStr)

	switch {
	case containsAny(combined, negotiationKeywords):
		return camerabridge.ErrCategoryNegotiation
	case containsAny(combined, resourceKeywords):
		return camerabridge.ErrCategoryResource
	case containsAny(combined, deviceKeywords):
		return camerabridge.ErrCategoryDevice
	default:
		return camerabridge.ErrCategoryUnknown
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
