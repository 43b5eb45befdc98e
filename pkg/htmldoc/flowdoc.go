package htmldoc

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gunho/artifact/pkg/errors"
	"github.com/gunho/artifact/pkg/flow"
	"github.com/gunho/artifact/pkg/theme"
)

// Element and style sheet block IDs in the flow viewer document.
const (
	flowElementsID = "flow-elements"
	flowStylesID   = "flow-styles"
)

// FlowDocument builds the interactive flow chart viewer: the visual spec
// inlined as JSON data blocks, the pinned cytoscape/dagre libraries, and an
// init script that feeds one into the other with the chart's layout
// direction.
func FlowDocument(title string, spec flow.VisualSpec, th theme.Resolved, rankDir string) (string, error) {
	elements, err := json.Marshal(spec.Elements)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeRender, err, "encode viewer elements")
	}
	styles, err := json.Marshal(spec.Styles)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeRender, err, "encode viewer styles")
	}

	blocks := []ScriptBlock{
		{ID: flowElementsID, MIMEType: MIMEJSON, Payload: elements},
		{ID: flowStylesID, MIMEType: MIMEJSON, Payload: styles},
	}

	doc := Wrap(title, blocks,
		[]string{DagreURL, CytoscapeURL, CytoscapeDagreURL},
		flowStyle(th))

	// The viewer container goes in front of the data blocks, the init script
	// after the library tags; both are spliced into the assembled skeleton.
	doc = strings.Replace(doc, "<body>\n", "<body>\n  <div id=\"cy\"></div>\n", 1)
	init := fmt.Sprintf(flowInitScript, flowElementsID, flowStylesID, rankDir)
	return strings.Replace(doc, "</body>", "  <script>\n"+init+"\n  </script>\n</body>", 1), nil
}

func flowStyle(th theme.Resolved) string {
	return fmt.Sprintf(`    * { margin: 0; padding: 0; box-sizing: border-box; }
    body {
      font-family: '%s';
      background: %s;
      height: 100vh;
      overflow: hidden;
    }
    #cy { width: 100%%; height: 100%%; }`,
		th.Var(theme.VarFontFamily), th.Var(theme.VarPrimaryColor))
}

// flowInitScript wires the inlined JSON blocks into cytoscape with a dagre
// layout. Placeholders: elements block id, styles block id, rank direction.
const flowInitScript = `    if (typeof cytoscape !== 'undefined' && typeof cytoscapeDagre !== 'undefined') {
      cytoscape.use(cytoscapeDagre);
    }
    document.addEventListener('DOMContentLoaded', function () {
      var elements = JSON.parse(document.getElementById('%s').textContent);
      var style = JSON.parse(document.getElementById('%s').textContent);
      var cy = cytoscape({
        container: document.getElementById('cy'),
        elements: elements,
        style: style,
        layout: {
          name: 'dagre',
          directed: true,
          padding: 50,
          spacingFactor: 1.3,
          rankDir: '%s'
        }
      });
      setTimeout(function () { cy.fit(null, 40); }, 100);
    });`
