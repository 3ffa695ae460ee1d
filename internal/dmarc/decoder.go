package dmarc

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"io"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/dmarcstack/dmarcstack/internal/enum"
	"github.com/dmarcstack/dmarcstack/internal/logger"
	"github.com/dmarcstack/dmarcstack/internal/models"
	"github.com/dmarcstack/dmarcstack/internal/utils"
)

// Decoder turns raw email attachments into XML payload candidates. It never
// returns an error to the caller: corrupt containers produce zero payloads
// plus an Invalid outcome, so one bad attachment cannot abort a batch.
type Decoder struct {
	log logger.Logger
	// maxPayloadBytes caps the decoded size of a single payload. Zero means
	// unbounded. The cap is enforced during decompression, before the bytes
	// reach the validator, so a small archive member cannot expand into an
	// arbitrarily large buffer.
	maxPayloadBytes int64
	handlers        []decodeHandler
}

type decodeHandler struct {
	name   string
	match  func(filename string) bool
	decode func(filename string, content []byte) ([]models.DecodedPayload, []models.ValidationOutcome)
}

func NewDecoder(log logger.Logger, maxPayloadBytes int64) *Decoder {
	d := &Decoder{
		log:             log,
		maxPayloadBytes: maxPayloadBytes,
	}
	// Dispatch is by filename extension, case-insensitive. The declared MIME
	// type is ignored: report senders routinely mislabel it.
	d.handlers = []decodeHandler{
		{
			name:   "xml",
			match:  func(n string) bool { return utils.HasSuffixFold(n, ".xml") },
			decode: d.decodeXML,
		},
		{
			name:   "gzip",
			match:  func(n string) bool { return utils.HasSuffixFold(n, ".gz") },
			decode: d.decodeGzip,
		},
		{
			name:   "zip",
			match:  func(n string) bool { return utils.HasSuffixFold(n, ".zip") },
			decode: d.decodeZip,
		},
	}
	return d
}

// Decode extracts XML payload candidates from one attachment. The second
// return value carries per-payload failures (bad UTF-8, corrupt stream,
// oversized) and skip markers; it is empty when everything decoded cleanly.
func (d *Decoder) Decode(filename string, content []byte) ([]models.DecodedPayload, []models.ValidationOutcome) {
	for _, h := range d.handlers {
		if h.match(filename) {
			return h.decode(filename, content)
		}
	}

	// Cheap filter: attachments that neither carry a known extension nor
	// mention "dmarc" in the filename are not worth reading at all.
	if !utils.ContainsFold(filename, "dmarc") {
		return nil, []models.ValidationOutcome{
			models.InvalidOutcome(enum.InvalidAttachmentSkipped, "filename does not look like a DMARC report"),
		}
	}

	// Named like a report but with an unknown extension: try it as XML.
	return d.decodeXML(filename, content)
}

func (d *Decoder) decodeXML(filename string, content []byte) ([]models.DecodedPayload, []models.ValidationOutcome) {
	if failure := d.checkSize(filename, int64(len(content))); failure != nil {
		return nil, []models.ValidationOutcome{*failure}
	}
	if !utf8.Valid(content) {
		d.log.Warnf("attachment %s is not valid UTF-8, skipping", filename)
		return nil, []models.ValidationOutcome{
			models.InvalidOutcome(enum.InvalidDecodeFailed, "payload is not valid UTF-8"),
		}
	}
	return []models.DecodedPayload{{SourceFilename: filename, Content: content}}, nil
}

func (d *Decoder) decodeGzip(filename string, content []byte) ([]models.DecodedPayload, []models.ValidationOutcome) {
	reader, err := gzip.NewReader(bytes.NewReader(content))
	if err != nil {
		d.log.Warnf("attachment %s: corrupt gzip stream: %v", filename, err)
		return nil, []models.ValidationOutcome{
			models.InvalidOutcome(enum.InvalidDecodeFailed, errors.Wrap(err, "gzip open").Error()),
		}
	}
	defer reader.Close()

	decompressed, failure := d.readLimited(filename, reader)
	if failure != nil {
		return nil, []models.ValidationOutcome{*failure}
	}
	return d.decodeXML(filename, decompressed)
}

func (d *Decoder) decodeZip(filename string, content []byte) ([]models.DecodedPayload, []models.ValidationOutcome) {
	archive, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		d.log.Warnf("attachment %s: corrupt zip archive: %v", filename, err)
		return nil, []models.ValidationOutcome{
			models.InvalidOutcome(enum.InvalidDecodeFailed, errors.Wrap(err, "zip open").Error()),
		}
	}

	var payloads []models.DecodedPayload
	var failures []models.ValidationOutcome

	for _, member := range archive.File {
		if !utils.HasSuffixFold(member.Name, ".xml") {
			continue
		}

		memberPayloads, memberFailures := d.decodeZipMember(filename, member)
		payloads = append(payloads, memberPayloads...)
		failures = append(failures, memberFailures...)
	}

	return payloads, failures
}

// decodeZipMember decompresses a single member. A failure here is isolated:
// remaining members of the same archive still get processed.
func (d *Decoder) decodeZipMember(filename string, member *zip.File) ([]models.DecodedPayload, []models.ValidationOutcome) {
	rc, err := member.Open()
	if err != nil {
		d.log.Warnf("attachment %s: cannot open zip member %s: %v", filename, member.Name, err)
		return nil, []models.ValidationOutcome{
			models.InvalidOutcome(enum.InvalidDecodeFailed, errors.Wrapf(err, "zip member %s", member.Name).Error()),
		}
	}
	defer rc.Close()

	decompressed, failure := d.readLimited(member.Name, rc)
	if failure != nil {
		return nil, []models.ValidationOutcome{*failure}
	}
	if !utf8.Valid(decompressed) {
		d.log.Warnf("attachment %s: zip member %s is not valid UTF-8", filename, member.Name)
		return nil, []models.ValidationOutcome{
			models.InvalidOutcome(enum.InvalidDecodeFailed, "zip member is not valid UTF-8"),
		}
	}

	return []models.DecodedPayload{{
		SourceFilename: filename,
		ArchiveMember:  member.Name,
		Content:        decompressed,
	}}, nil
}

// readLimited reads the whole stream but refuses to buffer more than the
// configured ceiling.
func (d *Decoder) readLimited(name string, r io.Reader) ([]byte, *models.ValidationOutcome) {
	if d.maxPayloadBytes > 0 {
		r = io.LimitReader(r, d.maxPayloadBytes+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		d.log.Warnf("attachment %s: decompression failed: %v", name, err)
		failure := models.InvalidOutcome(enum.InvalidDecodeFailed, errors.Wrap(err, "decompress").Error())
		return nil, &failure
	}
	if failure := d.checkSize(name, int64(len(data))); failure != nil {
		return nil, failure
	}
	return data, nil
}

func (d *Decoder) checkSize(name string, size int64) *models.ValidationOutcome {
	if d.maxPayloadBytes > 0 && size > d.maxPayloadBytes {
		d.log.Warnf("attachment %s: decoded payload exceeds %d bytes", name, d.maxPayloadBytes)
		failure := models.InvalidOutcome(enum.InvalidOversized, "decoded payload exceeds configured maximum")
		return &failure
	}
	return nil
}
