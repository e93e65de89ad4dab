package vcard

import (
	"io"
	"log/slog"
	"mime/quotedprintable"
	"strings"

	"golang.org/x/text/encoding/ianaindex"

	"vcfmerge/internal/logging"
)

// DecodeValue reverses transport encodings declared in a field key's
// parameter segment: quoted-printable first, then a charset override. Absent
// relevant parameters the value is returned unchanged. Failures are never
// fatal; the original value is kept and the problem logged at debug level.
func DecodeValue(key, value string, logger *slog.Logger) string {
	if logger == nil {
		logger = logging.NewNop()
	}
	_, paramSegment, hasParams := strings.Cut(key, ";")
	if !hasParams {
		return value
	}
	params := ParseParams(paramSegment)

	if wantsQuotedPrintable(params) {
		decoded, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(value)))
		if err != nil {
			logger.Debug("quoted-printable decode failed", "key", key, "error", err)
		} else {
			value = string(decoded)
		}
	}

	if charset := paramValue(params, "CHARSET"); charset != "" {
		value = decodeCharset(value, charset, logger)
	}
	return value
}

func wantsQuotedPrintable(params []Param) bool {
	for _, p := range params {
		if strings.EqualFold(p.Key, "ENCODING") && strings.EqualFold(p.Value, "QUOTED-PRINTABLE") {
			return true
		}
		// vCard 2.1 producers write the token bare.
		if p.Value == "" && strings.EqualFold(p.Key, "QUOTED-PRINTABLE") {
			return true
		}
	}
	return false
}

func paramValue(params []Param, key string) string {
	for _, p := range params {
		if strings.EqualFold(p.Key, key) {
			return p.Value
		}
	}
	return ""
}

// decodeCharset reinterprets the raw bytes of value under the named charset.
// Unknown names and decode errors fall back to a permissive UTF-8 read with
// undecodable bytes replaced.
func decodeCharset(value, charset string, logger *slog.Logger) string {
	if strings.EqualFold(charset, "UTF-8") || strings.EqualFold(charset, "UTF8") {
		return strings.ToValidUTF8(value, "�")
	}
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		logger.Debug("unknown charset, keeping permissive UTF-8", "charset", charset)
		return strings.ToValidUTF8(value, "�")
	}
	decoded, err := enc.NewDecoder().String(value)
	if err != nil {
		logger.Debug("charset decode failed", "charset", charset, "error", err)
		return strings.ToValidUTF8(value, "�")
	}
	return decoded
}
