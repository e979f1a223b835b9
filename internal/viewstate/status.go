package viewstate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/socialdemo/internal/metrics"
)

// DefaultPollInterval はAPI死活確認のデフォルト間隔。
const DefaultPollInterval = time.Minute

// Prober は投稿APIの死活確認を行う。
type Prober interface {
	Probe(ctx context.Context) error
}

// StatusSnapshot はAPI状態の表示用コピー。LastCheckedは未確認の場合nil。
type StatusSnapshot struct {
	Online      bool       `json:"isOnline"`
	LastChecked *time.Time `json:"lastChecked"`
}

// APIStatus は投稿APIへの到達可否を定期的に確認する。
// Startで開始した確認ループはStopで必ず停止すること。
type APIStatus struct {
	prober   Prober
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	mu          sync.Mutex
	online      bool
	lastChecked time.Time
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewAPIStatus はAPIStatusの新しいインスタンスを生成する。
// intervalが0以下の場合はDefaultPollIntervalを使用する。初期状態はオンライン。
func NewAPIStatus(prober Prober, m metrics.MetricsCollector, logger *slog.Logger, interval time.Duration) *APIStatus {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if m == nil {
		m = metrics.Nop{}
	}
	m.SetAPIOnline(true)
	return &APIStatus{
		prober:   prober,
		metrics:  m,
		logger:   logger,
		interval: interval,
		now:      time.Now,
		online:   true,
	}
}

// Start は確認ループをバックグラウンドで開始する。開始直後に1回確認し、以降interval毎に確認する。
// すでに開始している場合は何もしない。ループはctxのキャンセルまたはStopで終了する。
func (a *APIStatus) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	a.cancel = cancel
	a.done = done

	go a.run(ctx, done)
}

func (a *APIStatus) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.Info("API死活確認を開始しました", slog.Duration("interval", a.interval))

	a.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("API死活確認を停止しました")
			return
		case <-ticker.C:
			a.Check(ctx)
		}
	}
}

// Stop は確認ループを停止し、ループの終了を待つ。開始していない場合は何もしない。
func (a *APIStatus) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Check は1回死活確認を行い、結果を記録して返す。
func (a *APIStatus) Check(ctx context.Context) bool {
	err := a.prober.Probe(ctx)
	online := err == nil
	if ctx.Err() != nil && !online {
		// 停止による中断は結果として記録しない
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.online
	}
	if !online {
		a.logger.Warn("APIに到達できません", slog.String("error", err.Error()))
	}

	a.mu.Lock()
	changed := a.online != online
	a.online = online
	a.lastChecked = a.now()
	a.mu.Unlock()

	a.metrics.SetAPIOnline(online)
	if changed {
		a.logger.Info("API状態が変化しました", slog.Bool("online", online))
	}
	return online
}

// Snapshot は現在の状態のコピーを返す。
func (a *APIStatus) Snapshot() StatusSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	snap := StatusSnapshot{Online: a.online}
	if !a.lastChecked.IsZero() {
		t := a.lastChecked
		snap.LastChecked = &t
	}
	return snap
}
