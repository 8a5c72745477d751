/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package notifications

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"
)

const maxMailSize = 2 << 20

var wordDecoder = &mime.WordDecoder{}

// parseReply reads a raw RFC 5322 message into a Reply. The body is the first
// text/plain part, falling back to the first text/* part.
func parseReply(id string, raw io.Reader, fallbackTime time.Time) (Reply, error) {
	msg, err := mail.ReadMessage(io.LimitReader(raw, maxMailSize))
	if err != nil {
		return Reply{}, fmt.Errorf("parse message %s: %w", id, err)
	}

	subject, err := wordDecoder.DecodeHeader(msg.Header.Get("Subject"))
	if err != nil {
		subject = msg.Header.Get("Subject")
	}

	from := msg.Header.Get("From")
	if addr, err := mail.ParseAddress(from); err == nil {
		from = addr.Address
	}

	received := fallbackTime
	if d, err := msg.Header.Date(); err == nil {
		received = d.UTC()
	}

	messageID := strings.Trim(strings.TrimSpace(msg.Header.Get("Message-Id")), "<>")
	if messageID == "" {
		messageID = id
	}

	body, err := textBody(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return Reply{}, fmt.Errorf("read body of %s: %w", id, err)
	}

	return Reply{
		ID:         id,
		MessageID:  messageID,
		From:       strings.ToLower(from),
		Subject:    subject,
		Body:       body,
		ReceivedAt: received,
	}, nil
}

func textBody(contentType, encoding string, body io.Reader) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || contentType == "" {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(body, params["boundary"])
		var fallback string
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return fallback, nil
			}
			if err != nil {
				return "", err
			}
			text, err := textBody(part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part)
			if err != nil {
				return "", err
			}
			partType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
			if partType == "" || partType == "text/plain" || strings.HasPrefix(partType, "multipart/") {
				if text != "" {
					return text, nil
				}
			}
			if fallback == "" {
				fallback = text
			}
		}
	}

	if !strings.HasPrefix(mediaType, "text/") {
		return "", nil
	}

	decoded, err := io.ReadAll(decodeTransfer(encoding, body))
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	case "base64":
		raw, err := io.ReadAll(r)
		if err != nil {
			return bytes.NewReader(nil)
		}
		clean := strings.Map(func(r rune) rune {
			if r == '\r' || r == '\n' || r == ' ' {
				return -1
			}
			return r
		}, string(raw))
		out, err := base64.StdEncoding.DecodeString(clean)
		if err != nil {
			return bytes.NewReader(raw)
		}
		return bytes.NewReader(out)
	default:
		return r
	}
}
