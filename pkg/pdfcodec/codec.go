// Package pdfcodec decodes PDF bytes into page sequences and encodes page
// sequences back into PDF bytes, including encryption and decryption.
package pdfcodec

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/yourorg/pdf-service/pkg/errors"
	"github.com/yourorg/pdf-service/pkg/logging"
)

// aesKeyLength is the key size in bits used when protecting documents.
const aesKeyLength = 128

var disableConfigDir sync.Once

// Codec reads and writes PDF documents.
type Codec struct {
	ownerSuffix string
	logger      logging.Logger
}

// New creates a Codec. ownerSuffix is appended to the user password to derive
// an owner password when none is supplied.
func New(ownerSuffix string, logger logging.Logger) *Codec {
	disableConfigDir.Do(func() {
		model.ConfigPath = "disable"
	})
	return &Codec{ownerSuffix: ownerSuffix, logger: logger.Named("pdfcodec")}
}

func (c *Codec) config() *model.Configuration {
	return model.NewDefaultConfiguration()
}

// Decode parses data into a Document. Input that needs a user password is
// rejected with a wrong-password error pointing the caller at unlock;
// permission-only restrictions are dropped.
func (c *Codec) Decode(name string, data []byte) (*Document, error) {
	doc, encrypted, err := c.read(name, data, c.config())
	if err != nil {
		return nil, err
	}
	if encrypted {
		return nil, errors.NewWrongPasswordError(
			fmt.Sprintf("%s is password protected; unlock it first", displayName(name)))
	}
	return doc, nil
}

// read decodes data and reports whether it is locked behind a user password.
// A document that opens with the empty user password and only restricts
// permissions is decrypted in place and is not reported as locked.
func (c *Codec) read(name string, data []byte, conf *model.Configuration) (*Document, bool, error) {
	ctx, locked, err := c.parse(name, data, conf)
	if err != nil || locked {
		return nil, locked, err
	}

	if ctx.Encrypt != nil {
		plain, err := c.liftRestrictions(data)
		if err != nil {
			c.logger.Warn("Restricted document could not be opened without a password",
				logging.NewField("document", name),
				logging.NewField("error", err),
			)
			return nil, true, nil
		}
		data = plain
		if ctx, locked, err = c.parse(name, data, conf); err != nil || locked {
			return nil, locked, err
		}
	}

	doc := &Document{raw: data, name: name}
	texts, err := extractText(data)
	if err != nil {
		c.logger.Warn("Embedded text extraction failed",
			logging.NewField("document", name),
			logging.NewField("error", err),
		)
	}
	doc.pages = make([]*Page, ctx.PageCount)
	for i := range doc.pages {
		doc.pages[i] = &Page{Index: i, Text: texts[i], doc: doc}
	}
	return doc, false, nil
}

func (c *Codec) parse(name string, data []byte, conf *model.Configuration) (*model.Context, bool, error) {
	if len(data) == 0 {
		return nil, false, errors.NewCorruptError(fmt.Sprintf("%s is empty", displayName(name)), nil)
	}

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		if isPasswordError(err) {
			return nil, true, nil
		}
		return nil, false, errors.NewCorruptError(
			fmt.Sprintf("%s is not a readable PDF document", displayName(name)), err)
	}
	if ctx.PageCount == 0 {
		return nil, false, errors.NewCorruptError(fmt.Sprintf("%s has no pages", displayName(name)), nil)
	}
	return ctx, false, nil
}

// liftRestrictions rewrites a document encrypted with an empty user password
// as plain PDF.
func (c *Codec) liftRestrictions(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := api.Decrypt(bytes.NewReader(data), &buf, c.config()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes the given pages, in order, as a new PDF. Pages may come from
// several documents; runs of pages from the same document are collected
// together and the runs are then concatenated.
func (c *Codec) Encode(pages []*Page) ([]byte, error) {
	if len(pages) == 0 {
		return nil, errors.NewValidationError("Cannot encode a document without pages")
	}

	var parts [][]byte
	for start := 0; start < len(pages); {
		doc := pages[start].doc
		end := start
		selected := []string{}
		for end < len(pages) && pages[end].doc == doc {
			selected = append(selected, strconv.Itoa(pages[end].Number()))
			end++
		}

		var buf bytes.Buffer
		if err := api.Collect(bytes.NewReader(doc.raw), &buf, selected, c.config()); err != nil {
			return nil, errors.NewProcessingError("Failed to assemble pages", err)
		}
		parts = append(parts, buf.Bytes())
		start = end
	}

	if len(parts) == 1 {
		return parts[0], nil
	}
	return c.concat(parts)
}

// EncodedSize returns the size of the document made of the given 0-based pages of doc.
func (c *Codec) EncodedSize(doc *Document, indices []int) (int64, error) {
	pages, err := doc.Select(indices)
	if err != nil {
		return 0, err
	}
	out, err := c.Encode(pages)
	if err != nil {
		return 0, err
	}
	return int64(len(out)), nil
}

// Merge concatenates documents in order. At least two are required.
func (c *Codec) Merge(docs []*Document) ([]byte, error) {
	if len(docs) < 2 {
		return nil, errors.NewInsufficientInputsError("At least two PDF files are required to merge")
	}
	parts := make([][]byte, len(docs))
	for i, d := range docs {
		parts[i] = d.raw
	}
	return c.concat(parts)
}

func (c *Codec) concat(parts [][]byte) ([]byte, error) {
	readers := make([]io.ReadSeeker, len(parts))
	for i, p := range parts {
		readers[i] = bytes.NewReader(p)
	}
	var buf bytes.Buffer
	if err := api.MergeRaw(readers, &buf, false, c.config()); err != nil {
		return nil, errors.NewProcessingError("Failed to merge documents", err)
	}
	return buf.Bytes(), nil
}

// Encrypt protects data with AES. An empty owner password is derived from the
// user password and the configured suffix.
func (c *Codec) Encrypt(data []byte, userPW, ownerPW string, perms PermissionSet) ([]byte, error) {
	if userPW == "" {
		return nil, errors.NewValidationError("pdf_password is required")
	}
	if ownerPW == "" {
		ownerPW = userPW + c.ownerSuffix
	}
	if ownerPW == userPW {
		return nil, errors.NewValidationError("owner_password must differ from pdf_password")
	}

	conf := model.NewAESConfiguration(userPW, ownerPW, aesKeyLength)
	conf.Permissions = model.PermissionFlags(perms.Mask())

	var buf bytes.Buffer
	if err := api.Encrypt(bytes.NewReader(data), &buf, conf); err != nil {
		return nil, errors.NewProcessingError("Failed to encrypt document", err)
	}
	return buf.Bytes(), nil
}

// Decrypt removes protection from data using password, which may be either the
// user or the owner password. Input that opens without a password is
// returned decoded as is.
// A failed attempt is never retried with other input.
func (c *Codec) Decrypt(name string, data []byte, password string) (*Document, error) {
	doc, encrypted, err := c.read(name, data, c.config())
	if err != nil {
		return nil, err
	}
	if !encrypted {
		return doc, nil
	}
	if password == "" {
		return nil, errors.NewValidationError("password is required")
	}

	for _, owner := range []string{password, password + c.ownerSuffix} {
		conf := model.NewAESConfiguration(password, owner, aesKeyLength)
		var buf bytes.Buffer
		err := api.Decrypt(bytes.NewReader(data), &buf, conf)
		if err == nil {
			plain, _, readErr := c.read(name, buf.Bytes(), c.config())
			return plain, readErr
		}
		if !isPasswordError(err) {
			return nil, errors.NewCorruptError(
				fmt.Sprintf("%s could not be decrypted", displayName(name)), err)
		}
	}
	return nil, errors.NewWrongPasswordError("Incorrect password")
}

func isPasswordError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "password")
}

func displayName(name string) string {
	if name == "" {
		return "document"
	}
	return name
}
