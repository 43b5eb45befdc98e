package htmldoc

// APIReferenceID is the element the Scalar renderer looks up for its inline
// OpenAPI source. Exactly one element in the document carries this id.
const APIReferenceID = "api-reference"

// APIReferenceDocument builds a Scalar API Reference page with the OpenAPI
// document inlined as JSON. The Scalar script discovers the spec through the
// script element's id.
func APIReferenceDocument(title string, openAPIJSON []byte) string {
	blocks := []ScriptBlock{
		{ID: APIReferenceID, MIMEType: MIMEJSON, Payload: openAPIJSON},
	}
	style := "    html, body { height: 100%; margin: 0; }"
	return Wrap(title, blocks, []string{ScalarURL}, style)
}
