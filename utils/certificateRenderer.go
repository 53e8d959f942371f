package utils

import (
	"bytes"
	"html/template"
	"time"
)

// HTMLCertificateRenderer renders certificates as standalone HTML documents.
// It satisfies the services.CertificateRenderer interface.
type HTMLCertificateRenderer struct {
	tmpl *template.Template
}

var certificateTemplate = template.Must(template.New("certificate").Parse(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Georgia, 'Times New Roman', serif; background: #F6F6F6; margin: 0; padding: 40px; }
		.certificate { max-width: 800px; margin: auto; background: #FFFFFF; border: 12px double #1A2238; padding: 60px; text-align: center; }
		h1 { color: #1A2238; letter-spacing: 2px; margin-bottom: 0; }
		.subtitle { color: #666666; font-style: italic; }
		.owner { font-size: 32px; color: #1A2238; margin: 30px 0 10px; }
		.course { font-size: 24px; color: #9DAAF2; margin-bottom: 30px; }
		.date { color: #666666; font-size: 14px; }
	</style>
</head>
<body>
	<div class="certificate">
		<h1>CERTIFICATE OF COMPLETION</h1>
		<p class="subtitle">This certifies that</p>
		<div class="owner">{{.FullName}}</div>
		<p class="subtitle">has successfully completed the course</p>
		<div class="course">{{.CourseTitle}}</div>
		<p class="date">Issued on {{.IssuedOn}}</p>
	</div>
</body>
</html>
`))

func NewHTMLCertificateRenderer() *HTMLCertificateRenderer {
	return &HTMLCertificateRenderer{tmpl: certificateTemplate}
}

func (r *HTMLCertificateRenderer) Render(fullName, courseTitle string) ([]byte, error) {
	var buf bytes.Buffer
	err := r.tmpl.Execute(&buf, map[string]string{
		"FullName":    fullName,
		"CourseTitle": courseTitle,
		"IssuedOn":    time.Now().Format("January 2, 2006"),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
