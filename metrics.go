// Copyright 2025 Antfly, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package weaver

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/antflydb/weaver/lib/evaluation"
)

var (
	modelRequestOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "weaver",
			Name:      "model_request_ops_total",
			Help:      "The total number of model requests.",
		},
		[]string{"model", "task"},
	)
	modelRetryOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "weaver",
			Name:      "model_retry_ops_total",
			Help:      "The total number of model request retries.",
		},
		[]string{"model"},
	)

	promptTokenOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "weaver",
			Name:      "prompt_token_ops_total",
			Help:      "The total number of prompt tokens sent.",
		},
		[]string{"model"},
	)
	completionTokenOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "weaver",
			Name:      "completion_token_ops_total",
			Help:      "The total number of completion tokens received.",
		},
		[]string{"model"},
	)

	entityCreationOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "weaver",
			Name:      "entity_creation_ops_total",
			Help:      "The total number of entities anchored.",
		},
		[]string{"model"},
	)
	droppedCandidateOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "weaver",
			Name:      "dropped_candidate_ops_total",
			Help:      "The total number of candidates dropped during anchoring.",
		},
		[]string{"model"},
	)

	jobOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "weaver",
			Name:      "job_ops_total",
			Help:      "The total number of batch jobs finished.",
		},
		[]string{"mode", "status"},
	)

	activeJobs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "antfly",
			Subsystem: "weaver",
			Name:      "active_jobs",
			Help:      "Number of jobs currently being processed.",
		},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "antfly",
			Subsystem: "weaver",
			Name:      "request_duration_seconds",
			Help:      "Time taken to process a model request.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"task", "model", "status"},
	)

	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "weaver",
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits.",
		},
		[]string{"type"}, // chat
	)

	cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antfly",
			Subsystem: "weaver",
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses.",
		},
		[]string{"type"}, // chat
	)

	evaluationPrecision = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "antfly",
			Subsystem: "weaver",
			Name:      "evaluation_micro_precision",
			Help:      "Micro precision of the last evaluation.",
		},
		[]string{"dataset", "model"},
	)
	evaluationRecall = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "antfly",
			Subsystem: "weaver",
			Name:      "evaluation_micro_recall",
			Help:      "Micro recall of the last evaluation.",
		},
		[]string{"dataset", "model"},
	)
	evaluationF1 = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "antfly",
			Subsystem: "weaver",
			Name:      "evaluation_micro_f1",
			Help:      "Micro F1 of the last evaluation.",
		},
		[]string{"dataset", "model"},
	)
)

func init() {
	prometheus.MustRegister(modelRequestOps)
	prometheus.MustRegister(modelRetryOps)
	prometheus.MustRegister(promptTokenOps)
	prometheus.MustRegister(completionTokenOps)
	prometheus.MustRegister(entityCreationOps)
	prometheus.MustRegister(droppedCandidateOps)
	prometheus.MustRegister(jobOps)
	prometheus.MustRegister(activeJobs)
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(cacheHits)
	prometheus.MustRegister(cacheMisses)
	prometheus.MustRegister(evaluationPrecision)
	prometheus.MustRegister(evaluationRecall)
	prometheus.MustRegister(evaluationF1)
}

// RecordModelRequest increments the model request counter
func RecordModelRequest(model, task string) {
	modelRequestOps.WithLabelValues(model, task).Inc()
}

// RecordModelRetry increments the retry counter
func RecordModelRetry(model string) {
	modelRetryOps.WithLabelValues(model).Inc()
}

// RecordTokenUsage records prompt and completion token counts
func RecordTokenUsage(model string, prompt, completion int) {
	if prompt > 0 {
		promptTokenOps.WithLabelValues(model).Add(float64(prompt))
	}
	if completion > 0 {
		completionTokenOps.WithLabelValues(model).Add(float64(completion))
	}
}

// RecordEntityCreation records the number of entities anchored
func RecordEntityCreation(model string, count int) {
	entityCreationOps.WithLabelValues(model).Add(float64(count))
}

// RecordDroppedCandidates records candidates dropped during anchoring
func RecordDroppedCandidates(model string, count int) {
	droppedCandidateOps.WithLabelValues(model).Add(float64(count))
}

// RecordRequestDuration records how long a model request took
func RecordRequestDuration(task, model, status string, seconds float64) {
	requestDuration.WithLabelValues(task, model, status).Observe(seconds)
}

// RecordJob counts one finished batch job
func RecordJob(mode, status string) {
	jobOps.WithLabelValues(mode, status).Inc()
}

// JobStarted increments the active job gauge
func JobStarted() {
	activeJobs.Inc()
}

// JobFinished decrements the active job gauge
func JobFinished() {
	activeJobs.Dec()
}

// RecordCacheHit increments the cache hit counter
func RecordCacheHit(cacheType string) {
	cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss increments the cache miss counter
func RecordCacheMiss(cacheType string) {
	cacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordEvaluation publishes the scores of a finished evaluation
func RecordEvaluation(dataset, model string, m evaluation.Metrics) {
	evaluationPrecision.WithLabelValues(dataset, model).Set(m.MicroPrecision)
	evaluationRecall.WithLabelValues(dataset, model).Set(m.MicroRecall)
	evaluationF1.WithLabelValues(dataset, model).Set(m.MicroF1)
}
