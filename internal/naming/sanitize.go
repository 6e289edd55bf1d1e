package naming

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"
)

const (
	// MaxLength is the limit for DNS-1123 labels and label values.
	MaxLength = validation.DNS1123LabelMaxLength

	hashLength = 8
)

var (
	invalidDNSChars   = regexp.MustCompile(`[^a-z0-9-]+`)
	invalidLabelChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)
	repeatedDashes    = regexp.MustCompile(`-{2,}`)
)

// DNSLabel turns an arbitrary identifier into a DNS-1123 label usable in an
// object name. The result is stable: the same input always yields the same
// output. Whenever characters are replaced or the input is shortened a hash
// of the original is appended so that distinct ids stay distinct.
func DNSLabel(s string) string {
	if len(validation.IsDNS1123Label(s)) == 0 {
		return s
	}
	sanitized := strings.ToLower(s)
	sanitized = invalidDNSChars.ReplaceAllString(sanitized, "-")
	sanitized = repeatedDashes.ReplaceAllString(sanitized, "-")
	sanitized = strings.Trim(sanitized, "-")
	if sanitized == "" {
		return "x" + shortHash(s)
	}
	if sanitized != s {
		sanitized += "-" + shortHash(s)
	}
	return truncateWithHash(sanitized, s)
}

// LabelValue turns an identifier into a legal label value. Legal values are
// returned unchanged so that selectors built from raw ids keep matching.
func LabelValue(s string) string {
	if s == "" || len(validation.IsValidLabelValue(s)) == 0 {
		return s
	}
	sanitized := invalidLabelChars.ReplaceAllString(s, "-")
	sanitized = strings.Trim(sanitized, "-_.")
	if sanitized == "" {
		return "x" + shortHash(s)
	}
	if sanitized != s {
		sanitized += "-" + shortHash(s)
	}
	return truncateWithHash(sanitized, s)
}

// Name joins prefix and the sanitized id into an object name of at most
// MaxLength characters.
func Name(prefix, id string) string {
	return truncateWithHash(prefix+"-"+DNSLabel(id), prefix+"/"+id)
}

// truncateWithHash shortens sanitized so that a hash of original still fits
// in MaxLength, trimming separators left dangling at the cut.
func truncateWithHash(sanitized, original string) string {
	if len(sanitized) <= MaxLength {
		return sanitized
	}
	suffix := "-" + shortHash(original)
	head := sanitized[:MaxLength-len(suffix)]
	head = strings.TrimRight(head, "-_.")
	return head + suffix
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:hashLength]
}
