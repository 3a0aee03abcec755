package mail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"regexp"
	"strings"
)

const defaultSubject = "No Subject"

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Parser converts raw RFC 822 email bytes into an InboundEmail.
type Parser struct {
	decoder mime.WordDecoder
}

func NewParser() *Parser {
	return &Parser{}
}

// Parse extracts headers and a plain-text body from a raw message.
// text/plain parts are preferred; when only HTML is present the tags are
// stripped. Attachments are skipped.
func (p *Parser) Parse(raw []byte) (*InboundEmail, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}

	subject := p.decodeHeader(msg.Header.Get("Subject"))
	if subject == "" {
		subject = defaultSubject
	}

	body, err := extractBody(textproto.MIMEHeader{
		"Content-Type":              {msg.Header.Get("Content-Type")},
		"Content-Transfer-Encoding": {msg.Header.Get("Content-Transfer-Encoding")},
	}, msg.Body)
	if err != nil {
		return nil, fmt.Errorf("extract body: %w", err)
	}

	return &InboundEmail{
		From:      ExtractAddress(msg.Header.Get("From")),
		To:        ExtractAddress(msg.Header.Get("To")),
		Subject:   subject,
		Body:      strings.TrimSpace(body),
		Date:      msg.Header.Get("Date"),
		MessageID: msg.Header.Get("Message-ID"),
	}, nil
}

func (p *Parser) decodeHeader(s string) string {
	decoded, err := p.decoder.DecodeHeader(s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(decoded)
}

// ExtractAddress pulls the bare, lowercased address out of a header value
// like "John Doe <john@example.com>".
func ExtractAddress(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	if addr, err := mail.ParseAddress(header); err == nil {
		return strings.ToLower(addr.Address)
	}
	return strings.ToLower(header)
}

// extractBody walks a possibly-nested MIME structure and returns the best
// text representation it can find.
func extractBody(header textproto.MIMEHeader, r io.Reader) (string, error) {
	mediaType, params, err := mime.ParseMediaType(header.Get("Content-Type"))
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return "", fmt.Errorf("multipart message without boundary")
		}
		return extractMultipartBody(multipart.NewReader(r, boundary))
	}

	data, err := decodeTransferEncoding(header.Get("Content-Transfer-Encoding"), r)
	if err != nil {
		return "", err
	}

	if mediaType == "text/html" {
		return StripHTML(string(data)), nil
	}
	return string(data), nil
}

func extractMultipartBody(mr *multipart.Reader) (string, error) {
	var htmlFallback string

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		disposition := part.Header.Get("Content-Disposition")
		if strings.Contains(disposition, "attachment") {
			continue
		}

		mediaType, params, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			continue
		}

		switch {
		case strings.HasPrefix(mediaType, "multipart/"):
			nested, err := extractMultipartBody(multipart.NewReader(part, params["boundary"]))
			if err == nil && nested != "" {
				return nested, nil
			}
		case mediaType == "text/plain":
			data, err := decodeTransferEncoding(part.Header.Get("Content-Transfer-Encoding"), part)
			if err == nil {
				return string(data), nil
			}
		case mediaType == "text/html" && htmlFallback == "":
			data, err := decodeTransferEncoding(part.Header.Get("Content-Transfer-Encoding"), part)
			if err == nil {
				htmlFallback = StripHTML(string(data))
			}
		}
	}

	return htmlFallback, nil
}

func decodeTransferEncoding(encoding string, r io.Reader) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}
	return io.ReadAll(r)
}

// StripHTML reduces an HTML document to plain text: tags become spaces,
// common entities are unescaped and whitespace runs collapse.
func StripHTML(html string) string {
	text := htmlTagRe.ReplaceAllString(html, " ")

	replacer := strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
	)
	text = replacer.Replace(text)

	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}
