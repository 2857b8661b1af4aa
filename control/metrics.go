// File: control/metrics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Prometheus collector over the engine's per-shard counters. The
// collector reads atomic snapshots, so scraping never touches a shard
// loop.

package control

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/momentics/hioload-engine/engine"
)

// Collector exports shard counters as Prometheus metrics.
type Collector struct {
	eng *engine.Engine

	tasksRun       *prometheus.Desc
	tasksSpawned   *prometheus.Desc
	timersFired    *prometheus.Desc
	crossSubmits   *prometheus.Desc
	mailboxDepth   *prometheus.Desc
	brokenPromises *prometheus.Desc
	unobserved     *prometheus.Desc
}

// NewCollector builds a collector over the engine. Register it with a
// prometheus.Registerer to expose the metrics.
func NewCollector(eng *engine.Engine) *Collector {
	label := []string{"shard"}
	return &Collector{
		eng: eng,
		tasksRun: prometheus.NewDesc(
			"hioload_engine_tasks_run_total",
			"Tasks run to a suspension point or completion.", label, nil),
		tasksSpawned: prometheus.NewDesc(
			"hioload_engine_tasks_spawned_total",
			"Tasks spawned.", label, nil),
		timersFired: prometheus.NewDesc(
			"hioload_engine_timers_fired_total",
			"Timer callbacks dispatched.", label, nil),
		crossSubmits: prometheus.NewDesc(
			"hioload_engine_cross_submits_total",
			"Cross-shard submissions sent.", label, nil),
		mailboxDepth: prometheus.NewDesc(
			"hioload_engine_mailbox_depth",
			"Cross-shard messages currently queued.", label, nil),
		brokenPromises: prometheus.NewDesc(
			"hioload_engine_broken_promises_total",
			"Promises abandoned before completion.", label, nil),
		unobserved: prometheus.NewDesc(
			"hioload_engine_unobserved_failures",
			"Failed futures nobody has observed.", label, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.tasksRun
	ch <- c.tasksSpawned
	ch <- c.timersFired
	ch <- c.crossSubmits
	ch <- c.mailboxDepth
	ch <- c.brokenPromises
	ch <- c.unobserved
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.eng.Stats().Shards {
		shard := strconv.Itoa(int(s.Shard))
		ch <- prometheus.MustNewConstMetric(c.tasksRun, prometheus.CounterValue, float64(s.TasksRun), shard)
		ch <- prometheus.MustNewConstMetric(c.tasksSpawned, prometheus.CounterValue, float64(s.TasksSpawned), shard)
		ch <- prometheus.MustNewConstMetric(c.timersFired, prometheus.CounterValue, float64(s.TimersFired), shard)
		ch <- prometheus.MustNewConstMetric(c.crossSubmits, prometheus.CounterValue, float64(s.CrossSubmits), shard)
		ch <- prometheus.MustNewConstMetric(c.mailboxDepth, prometheus.GaugeValue, float64(s.MailboxDepth), shard)
		ch <- prometheus.MustNewConstMetric(c.brokenPromises, prometheus.CounterValue, float64(s.BrokenPromises), shard)
		ch <- prometheus.MustNewConstMetric(c.unobserved, prometheus.GaugeValue, float64(s.UnobservedFailures), shard)
	}
}
