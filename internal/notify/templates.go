package notify

import "html/template"

var contactTmpl = template.Must(template.New("contact").Parse(`<h2>New Contact Form Submission</h2>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Phone:</strong> {{if .Phone}}{{.Phone}}{{else}}Not provided{{end}}</p>
<p><strong>Project Type:</strong> {{if .ProjectType}}{{.ProjectType}}{{else}}Not specified{{end}}</p>
<p><strong>Message:</strong></p>
<p>{{.Message}}</p>
`))

var webinarTmpl = template.Must(template.New("webinar").Parse(`<h2>Webinar Registration Confirmation</h2>
<p>Dear {{.Name}},</p>
<p>Thank you for registering for our webinar: <strong>{{.Title}}</strong></p>
<p>Date: {{.Date}}</p>
<p>You will receive joining instructions closer to the event date.</p>
<p>Best regards,<br>{{.Team}}</p>
`))

var projectTmpl = template.Must(template.New("project").Parse(`<h2>New Project Inquiry</h2>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Budget Range:</strong> {{if .BudgetRange}}{{.BudgetRange}}{{else}}Not specified{{end}}</p>
<p><strong>Description:</strong></p>
<p>{{.Description}}</p>
{{if .Attachments}}<p><strong>Attachments:</strong> {{.Attachments}} file(s), available in the admin panel.</p>
{{end}}`))
