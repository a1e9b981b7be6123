// Package email renders and sends the post-purchase recommendation email.
package email

import (
	"bytes"
	"fmt"
	"html/template"
)

// Subject is used for every recommendation email
const Subject = "Recommended for you"

// Product is one linked recommendation in the email
type Product struct {
	ID  string
	URL string
}

// RecommendationData is the template input
type RecommendationData struct {
	OrderID  string
	Products []Product
}

const recommendationHTML = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
  <h2>Thanks for your order{{if .OrderID}} #{{.OrderID}}{{end}}!</h2>
  <p>Based on what you bought, you might also like:</p>
  <ul>
  {{- range .Products}}
    <li><a href="{{.URL}}">Product {{.ID}}</a></li>
  {{- end}}
  </ul>
</body>
</html>
`

var recommendationTmpl = template.Must(template.New("recommendations").Parse(recommendationHTML))

// RenderRecommendations renders the HTML body for d
func RenderRecommendations(d RecommendationData) (string, error) {
	var buf bytes.Buffer
	if err := recommendationTmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("render recommendation email: %w", err)
	}
	return buf.String(), nil
}
