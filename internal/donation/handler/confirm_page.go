package handler

import (
	"html/template"
	"net/http"

	"feedlink/internal/donation/models"
	dErrors "feedlink/pkg/domain-errors"
	"feedlink/pkg/platform/httputil"
)

var confirmPage = template.Must(template.New("confirm").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>FeedLink - {{.Title}}</title></head>
<body style="font-family: sans-serif; max-width: 36em; margin: 3em auto;">
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
{{- with .Donation}}
<ul>
<li>Donor: {{.DonorName}}</li>
<li>Food: {{.FoodType}} ({{.Quantity}})</li>
<li>Serves: {{.EstimatedPeople}}</li>
</ul>
{{- end}}
</body>
</html>
`))

type confirmView struct {
	Title    string
	Message  string
	Donation *models.Donation
}

func renderConfirmed(w http.ResponseWriter, d *models.Donation, already bool) {
	view := confirmView{
		Title:    "Donation confirmed",
		Message:  "Thank you for confirming receipt of this donation.",
		Donation: d,
	}
	if already {
		view.Title = "Already confirmed"
		view.Message = "This donation was already confirmed. No further action is needed."
	}
	renderPage(w, http.StatusOK, view)
}

func renderConfirmError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	view := confirmView{Title: "Confirmation failed", Message: dErrors.MessageOf(err)}
	switch code {
	case dErrors.CodeInvalidToken:
		view.Message = "This confirmation link is invalid."
	case dErrors.CodeNotFound:
		view.Message = "This donation could not be found."
	case dErrors.CodeConflict:
		view.Message = "This donation was cancelled by the donor and cannot be confirmed."
	case dErrors.CodeInternal:
		view.Message = "Something went wrong. Please try the link again later."
	}
	renderPage(w, httputil.StatusFor(code), view)
}

func renderPage(w http.ResponseWriter, status int, view confirmView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = confirmPage.Execute(w, view)
}
