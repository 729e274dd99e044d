package pdfcodec

import (
	"bytes"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/pdf-service/pkg/errors"
	"github.com/yourorg/pdf-service/pkg/logging"
	"github.com/yourorg/pdf-service/pkg/pdfutil"
)

func newTestCodec() *Codec {
	return New("_owner", logging.NewNopLogger())
}

func fixture(t *testing.T, pages ...string) []byte {
	t.Helper()
	data, err := pdfutil.BuildPagesPDF(pages)
	require.NoError(t, err)
	return data
}

func decode(t *testing.T, c *Codec, data []byte) *Document {
	t.Helper()
	doc, err := c.Decode("fixture.pdf", data)
	require.NoError(t, err)
	return doc
}

func TestDecode(t *testing.T) {
	c := newTestCodec()
	doc := decode(t, c, fixture(t, "alpha page", "bravo page", "charlie page"))

	assert.Equal(t, 3, doc.PageCount())
	assert.Equal(t, "fixture.pdf", doc.Name())
	for i, p := range doc.Pages() {
		assert.Equal(t, i, p.Index)
		assert.Same(t, doc, p.Document())
	}
	assert.Contains(t, doc.Pages()[1].Text, "bravo")
}

func TestDecode_RejectsCorruptInput(t *testing.T) {
	c := newTestCodec()

	_, err := c.Decode("broken.pdf", []byte("this is not a pdf"))
	assert.ErrorIs(t, err, errors.ErrCorrupt)

	_, err = c.Decode("empty.pdf", nil)
	assert.ErrorIs(t, err, errors.ErrCorrupt)
}

func TestEncode_ReordersPages(t *testing.T) {
	c := newTestCodec()
	doc := decode(t, c, fixture(t, "alpha page", "bravo page", "charlie page"))

	pages, err := doc.Select([]int{2, 0})
	require.NoError(t, err)
	out, err := c.Encode(pages)
	require.NoError(t, err)

	reordered := decode(t, c, out)
	require.Equal(t, 2, reordered.PageCount())
	assert.Contains(t, reordered.Pages()[0].Text, "charlie")
	assert.Contains(t, reordered.Pages()[1].Text, "alpha")
}

func TestEncode_PagesFromSeveralDocuments(t *testing.T) {
	c := newTestCodec()
	first := decode(t, c, fixture(t, "alpha page", "bravo page"))
	second := decode(t, c, fixture(t, "delta page"))

	out, err := c.Encode([]*Page{first.Pages()[1], second.Pages()[0], first.Pages()[0]})
	require.NoError(t, err)

	combined := decode(t, c, out)
	require.Equal(t, 3, combined.PageCount())
	assert.Contains(t, combined.Pages()[0].Text, "bravo")
	assert.Contains(t, combined.Pages()[1].Text, "delta")
	assert.Contains(t, combined.Pages()[2].Text, "alpha")
}

func TestEncode_RejectsEmptySequence(t *testing.T) {
	_, err := newTestCodec().Encode(nil)
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestMerge_PreservesDocumentOrder(t *testing.T) {
	c := newTestCodec()
	first := decode(t, c, fixture(t, "alpha page", "bravo page"))
	second := decode(t, c, fixture(t, "charlie page", "delta page", "echo page"))

	out, err := c.Merge([]*Document{first, second})
	require.NoError(t, err)

	merged := decode(t, c, out)
	require.Equal(t, 5, merged.PageCount())
	assert.Contains(t, merged.Pages()[0].Text, "alpha")
	assert.Contains(t, merged.Pages()[2].Text, "charlie")
	assert.Contains(t, merged.Pages()[4].Text, "echo")
}

func TestMerge_RequiresTwoDocuments(t *testing.T) {
	c := newTestCodec()
	only := decode(t, c, fixture(t, "alpha page"))

	_, err := c.Merge([]*Document{only})
	assert.ErrorIs(t, err, errors.ErrInsufficientInputs)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	c := newTestCodec()
	plain := fixture(t, "alpha page", "bravo page")

	locked, err := c.Encrypt(plain, "s3cret", "", DefaultPermissions())
	require.NoError(t, err)

	_, err = c.Decode("locked.pdf", locked)
	assert.ErrorIs(t, err, errors.ErrWrongPassword, "encrypted input must be unlocked first")

	_, err = c.Decrypt("locked.pdf", locked, "wrong")
	assert.ErrorIs(t, err, errors.ErrWrongPassword)

	doc, err := c.Decrypt("locked.pdf", locked, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, 2, doc.PageCount())
	assert.Contains(t, doc.Pages()[1].Text, "bravo")

	// the decrypted stream is a plain PDF again
	reopened := decode(t, c, doc.Bytes())
	assert.Equal(t, 2, reopened.PageCount())
}

func TestDecrypt_AcceptsOwnerPassword(t *testing.T) {
	c := newTestCodec()
	locked, err := c.Encrypt(fixture(t, "alpha page"), "user-pw", "owner-pw", DefaultPermissions())
	require.NoError(t, err)

	doc, err := c.Decrypt("locked.pdf", locked, "owner-pw")
	require.NoError(t, err)
	assert.Equal(t, 1, doc.PageCount())
}

func TestDecrypt_PlainInputPassesThrough(t *testing.T) {
	c := newTestCodec()
	doc, err := c.Decrypt("plain.pdf", fixture(t, "alpha page"), "anything")
	require.NoError(t, err)
	assert.Equal(t, 1, doc.PageCount())
}

func TestEncrypt_Validation(t *testing.T) {
	c := newTestCodec()
	plain := fixture(t, "alpha page")

	_, err := c.Encrypt(plain, "", "", DefaultPermissions())
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = c.Encrypt(plain, "same", "same", DefaultPermissions())
	assert.ErrorIs(t, err, errors.ErrValidation)
}

// restricted encrypts data with an owner password only, the way viewers
// receive print- or copy-restricted documents.
func restricted(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, api.Encrypt(bytes.NewReader(data), &buf, model.NewAESConfiguration("", "owner-pw", 128)))
	return buf.Bytes()
}

func TestDecode_OpensPermissionRestrictedInput(t *testing.T) {
	c := newTestCodec()
	doc := decode(t, c, restricted(t, fixture(t, "alpha page", "bravo page")))

	assert.Equal(t, 2, doc.PageCount())
	assert.Contains(t, doc.Pages()[1].Text, "bravo")

	pages, err := doc.Select([]int{1})
	require.NoError(t, err)
	out, err := c.Encode(pages)
	require.NoError(t, err)
	single := decode(t, c, out)
	assert.Equal(t, 1, single.PageCount())
	assert.Contains(t, single.Pages()[0].Text, "bravo")
}

func TestDecrypt_PermissionRestrictedInputNeedsNoPassword(t *testing.T) {
	c := newTestCodec()
	doc, err := c.Decrypt("restricted.pdf", restricted(t, fixture(t, "alpha page", "bravo page")), "anything")
	require.NoError(t, err)
	assert.Equal(t, 2, doc.PageCount())

	ctx, err := api.ReadContext(bytes.NewReader(doc.Bytes()), model.NewDefaultConfiguration())
	require.NoError(t, err)
	assert.Nil(t, ctx.Encrypt, "output must not carry the restrictions")
}

func TestEncodedSize_GrowsWithPages(t *testing.T) {
	c := newTestCodec()
	doc := decode(t, c, fixture(t, "alpha page", "bravo page", "charlie page"))

	one, err := c.EncodedSize(doc, []int{0})
	require.NoError(t, err)
	three, err := c.EncodedSize(doc, []int{0, 1, 2})
	require.NoError(t, err)

	assert.Greater(t, one, int64(0))
	assert.Greater(t, three, one)

	_, err = c.EncodedSize(doc, []int{5})
	assert.Error(t, err)
}

func TestPermissionSet_Mask(t *testing.T) {
	assert.Equal(t, 4+16+64+256, DefaultPermissions().Mask())
	assert.Equal(t, 0, PermissionSet{}.Mask())
	all := PermissionSet{true, true, true, true, true, true}
	assert.Equal(t, 4+16+32+64+256+1024, all.Mask())
}
