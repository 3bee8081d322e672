package http

import (
	"bytes"
	"html/template"

	"github.com/gofiber/fiber/v2"
)

var documentsPage = template.Must(template.New("documentos").Parse(`<!doctype html>
<html lang="es">
<head><meta charset="utf-8"><title>Documentos</title></head>
<body>
<form id="upload-form" method="post" enctype="multipart/form-data" action="/api/v1/documentos/">
  <input type="hidden" name="csrfmiddlewaretoken" value="{{.Token}}">
  <input type="file" name="files[]" multiple accept=".pdf,.jpg,.jpeg,.png">
</form>
<table id="documentos-table"><tbody></tbody></table>
</body>
</html>
`))

// DocumentsPage entrega la página de la tabla con el token CSRF en un campo oculto.
func DocumentsPage(c *fiber.Ctx) error {
	token, _ := c.Locals(csrfContextKey).(string)
	var buf bytes.Buffer
	if err := documentsPage.Execute(&buf, struct{ Token string }{token}); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(buf.Bytes())
}
