package htmlutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const page = `<html><body>
<form>
	<input type="hidden" name="_csrf" value="abc-123">
	<input type="hidden" name="authorizedIDX">
	<span class="name">  Jane
		Doe </span>
	<span class="empty">   </span>
</form>
</body></html>`

func TestExtractAttr(t *testing.T) {
	doc := Parse(page)

	value, err := ExtractAttr(doc, "input[name='_csrf']", "value")
	require.NoError(t, err)
	require.Equal(t, "abc-123", value)

	_, err = ExtractAttr(doc, "input[name=missing]", "value")
	require.True(t, errors.Is(err, ErrNotFound))

	_, err = ExtractAttr(doc, "input[name=authorizedIDX]", "value")
	require.True(t, errors.Is(err, ErrAttributeMissing))
}

func TestExtractText(t *testing.T) {
	doc := Parse(page)

	text, err := ExtractText(doc, "span.name")
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", text)

	_, err = ExtractText(doc, "span.empty")
	require.True(t, errors.Is(err, ErrAttributeMissing))
}

func TestExtractMalformed(t *testing.T) {
	inputs := []string{
		"",
		"<<<>>>",
		"<div><input name='_csrf' value='x'",
		"\x00\x01garbage</html></html>",
	}
	for _, input := range inputs {
		doc := Parse(input)
		require.NotPanics(t, func() {
			_, err := ExtractAttr(doc, "img.captcha", "src")
			require.True(t, errors.Is(err, ErrNotFound))
		})
	}

	require.NotPanics(t, func() {
		_, err := ExtractAttr(Parse(page), "input[[[", "value")
		require.True(t, errors.Is(err, ErrNotFound))
	})

	_, err := ExtractAttr(nil, "input", "value")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestNormalizeText(t *testing.T) {
	require.Equal(t, "a b c", NormalizeText("\t a \n\n b   c \r\n"))
	require.Equal(t, "", NormalizeText(" \n "))
}

func TestTextSeparatesBlocks(t *testing.T) {
	doc := Parse(`<table><tr>
	<td id="venue"><p>A1+TA1 -</p><p>CB-302</p></td>
	<td id="faculty">RAJESH<br>KUMAR<script>var x = 1;</script><!-- hidden --></td>
	<td id="inline">Data <b>Struct</b>ures</td>
</tr></table>`)

	require.Equal(t, "A1+TA1 - CB-302", Text(doc.Find("#venue")))
	require.Equal(t, "RAJESH KUMAR", Text(doc.Find("#faculty")))
	require.Equal(t, "Data Structures", Text(doc.Find("#inline")))
	require.Equal(t, "", Text(doc.Find("#missing")))
}
