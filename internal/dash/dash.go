package dash

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/you/dmarket-scanner/internal/types"
)

// Row is one line of the dashboard: the latest scan result for (game, level).
type Row struct {
	Game  string `json:"game"`
	Level string `json:"level"`

	Found int `json:"found"`

	BestTitle     string  `json:"bestTitle"`
	BestBuyUSD    float64 `json:"bestBuyUSD"`
	BestProfitUSD float64 `json:"bestProfitUSD"`
	BestProfitPct float64 `json:"bestProfitPct"`

	ScanMs int64 `json:"scanMs"`
	TS     int64 `json:"ts"`
}

type Store struct {
	mu   sync.RWMutex
	rows map[string]Row // key: game|level
}

func NewStore() *Store { return &Store{rows: make(map[string]Row, 16)} }

// Update records the outcome of one level scan. The best opportunity (if any)
// is shown inline so the table doubles as a quick profitability glance.
func (s *Store) Update(game, level string, opps []types.Opportunity, took time.Duration) {
	row := Row{
		Game:   game,
		Level:  level,
		Found:  len(opps),
		ScanMs: took.Milliseconds(),
		TS:     time.Now().UnixMilli(),
	}
	if len(opps) > 0 {
		best := opps[0]
		for _, o := range opps[1:] {
			if o.ProfitPercent > best.ProfitPercent {
				best = o
			}
		}
		row.BestTitle = best.Item.Title
		row.BestBuyUSD = best.BuyPrice
		row.BestProfitUSD = best.Profit
		row.BestProfitPct = best.ProfitPercent
	}

	s.mu.Lock()
	s.rows[game+"|"+level] = row
	s.mu.Unlock()
}

func (s *Store) List() []Row {
	s.mu.RLock()
	out := make([]Row, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Game == out[j].Game {
			return out[i].Level < out[j].Level
		}
		return out[i].Game < out[j].Game
	})
	return out
}

func StartHTTP(ctx context.Context, s *Store, addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/dash", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.List())
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, indexHTML)
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           withCORS(mux),
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() { <-ctx.Done(); _ = srv.Close() }()

	log.Printf("[dash] listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !strings.Contains(err.Error(), "Server closed") {
		log.Printf("[dash] http server error: %v", err)
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const indexHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8"/>
  <meta name="viewport" content="width=device-width, initial-scale=1"/>
  <title>DMarket Scanner</title>
  <style>
    :root { --bg:#f8fafc; --card:#fff; --muted:#6b7280; --chip:#e5e7eb; }
    body{margin:0;background:var(--bg);font:14px/1.4 ui-sans-serif,system-ui,-apple-system,Segoe UI,Roboto,Ubuntu; color:#111827;}
    .wrap{max-width:1080px;margin:24px auto;padding:0 16px;}
    .hdr{display:flex;align-items:flex-end;justify-content:space-between;margin-bottom:12px;}
    .state{font-size:12px;padding:2px 8px;border-radius:999px;background:#d1fae5;color:#065f46;}
    table{width:100%;border-collapse:collapse;background:var(--card);border-radius:16px;overflow:hidden;box-shadow:0 10px 30px rgba(0,0,0,.06);}
    thead{background:#f3f4f6;} th,td{padding:12px 14px;text-align:left;} tbody tr{border-top:1px solid #f3f4f6;}
    .chip{display:inline-block;font-size:12px;padding:2px 8px;background:var(--chip);border-radius:999px;color:#374151;}
    .pct{padding:2px 8px;border-radius:8px;font-size:12px;}
    .pct.ok{background:#dcfce7;color:#166534;} .pct.dim{background:#f3f4f6;color:#6b7280;}
    .sub{color:var(--muted);font-size:12px;margin:0;}
  </style>
</head>
<body>
<div class="wrap">
  <div class="hdr">
    <div>
      <h1 style="margin:0;font-size:22px;font-weight:600">DMarket Scanner</h1>
      <p class="sub">latest scan per game / level</p>
    </div>
    <div id="state" class="state">live</div>
  </div>
  <table>
    <thead>
      <tr>
        <th>Game</th><th>Level</th><th>Found</th>
        <th>Best item</th><th>Buy</th><th>Profit</th><th>Profit %</th>
        <th>Scan</th>
        <th style="text-align:right">Updated</th>
      </tr>
    </thead>
    <tbody id="rows"></tbody>
  </table>
</div>
<script>
  function usd(x){ return (x==null||isNaN(x)||x===0) ? '—' : ('$'+Number(x).toLocaleString(undefined,{maximumFractionDigits:2})); }
  function pct(x){ return (x==null||isNaN(x)||x===0) ? '—' : (Number(x).toFixed(2)+'%'); }
  function rowHTML(r){
    var hot = (r.bestProfitPct||0) >= 10;
    return '<tr>'
      + '<td><span class="chip">' + (r.game||'') + '</span></td>'
      + '<td><strong>' + (r.level||'') + '</strong></td>'
      + '<td>' + (r.found||0) + '</td>'
      + '<td>' + (r.bestTitle||'—') + '</td>'
      + '<td>' + usd(r.bestBuyUSD) + '</td>'
      + '<td>' + usd(r.bestProfitUSD) + '</td>'
      + '<td><span class="pct ' + (hot?'ok':'dim') + '">' + pct(r.bestProfitPct) + '</span></td>'
      + '<td>' + (r.scanMs||0) + 'ms</td>'
      + '<td style="text-align:right;color:#6B7280;font-size:12px">' + new Date(r.ts||Date.now()).toLocaleTimeString() + '</td>'
      + '</tr>';
  }
  async function tick(){
    try{
      var res = await fetch('/api/dash', {cache:'no-store'});
      if(!res.ok) throw new Error('status '+res.status);
      var data = await res.json();
      document.getElementById('state').textContent = 'live';
      document.getElementById('rows').innerHTML = data.map(rowHTML).join('');
    }catch(e){
      document.getElementById('state').textContent = 'stale';
    }
  }
  tick(); setInterval(tick, 1000);
</script>
</body>
</html>`
