package panel

// indexHTML is the single static page of the panel. It polls nothing:
// the snapshot is refreshed whenever the status feed reports a sweep.
const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Oscilloscope</title>
<style>
body { background: #111; color: #ddd; font-family: monospace; }
button { margin: 2px; }
#status { white-space: pre; }
</style>
</head>
<body>
<img id="scope" src="/scope.png" width="680" height="480">
<div>
<button onclick="post('/api/run', {run: true})">Run</button>
<button onclick="post('/api/run', {run: false})">Stop</button>
<button onclick="post('/api/single', {})">Single</button>
<button onclick="post('/api/hscale', {step: -1})">H-</button>
<button onclick="post('/api/hscale', {step: 1})">H+</button>
<button onclick="toggle(0)">CH1</button>
<button onclick="toggle(1)">CH2</button>
</div>
<div id="status"></div>
<script>
var last = null, sweeps = -1;
function post(url, body) {
  fetch(url, {method: 'POST', body: JSON.stringify(body)});
}
function toggle(ch) {
  if (last) post('/api/channel', {channel: ch, enable: !last.channels[ch].enabled});
}
var ws = new WebSocket('ws://' + location.host + '/websocket');
ws.onmessage = function(ev) {
  last = JSON.parse(ev.data);
  document.getElementById('status').textContent = JSON.stringify(last, null, 1);
  if (last.sweeps !== sweeps) {
    sweeps = last.sweeps;
    document.getElementById('scope').src = '/scope.png?' + sweeps;
  }
};
</script>
</body>
</html>
`
