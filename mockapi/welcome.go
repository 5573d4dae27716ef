package mockapi

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/hyperaide-sync/capture"
)

// WelcomePath is where the capture browser lands.
const WelcomePath = "/browser-sync/welcome"

var welcomeTmpl = template.Must(template.New("welcome").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Hyperaide Browser Sync</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 640px; margin: 60px auto; padding: 0 20px; }
button { font-size: 16px; padding: 10px 20px; }
.muted { color: #666; }
</style>
</head>
<body>
<h1>Connect your sites</h1>
<ol>
<li>Open a new tab and log into each site you want Hyperaide to use.</li>
<li>When you are done, close this window or press the button below.</li>
</ol>
<p><button id="finish">Finish sync</button></p>
<p class="muted" id="note"></p>
<script>
document.getElementById("finish").addEventListener("click", function () {
	if (typeof window.{{.Binding}} === "function") {
		window.{{.Binding}}();
		document.getElementById("note").textContent = "Finishing, the browser will close.";
	} else {
		document.getElementById("note").textContent = "Close the browser window to finish.";
	}
});
</script>
</body>
</html>
`))

// WelcomeHandler serves the welcome page.
func WelcomeHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(welcomeHeaders()))
	r.Get(WelcomePath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		welcomeTmpl.Execute(w, struct{ Binding template.JS }{template.JS(capture.FinishBinding)})
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, WelcomePath, http.StatusFound)
	})
	return r
}
