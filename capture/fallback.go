package capture

// FinishBinding is the global function page scripts call to end the session.
const FinishBinding = "hyperaideFinish"

// FallbackHTML is shown when the welcome page cannot be loaded.
const FallbackHTML = `<!doctype html>
<html><head><meta charset="utf-8"><title>Hyperaide Browser Sync</title></head>
<body style="font-family: system-ui; padding: 40px; background: #1a1a2e; color: white;">
<h1>Hyperaide Browser Sync</h1>
<p>Open new tabs and log into the sites you want Hyperaide to access.</p>
<p><strong>Close the browser when you're done to sync your authentication.</strong></p>
<p><button onclick="window.` + FinishBinding + ` && window.` + FinishBinding + `()">Finish sync</button></p>
</body></html>`
