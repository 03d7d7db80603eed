// Package metrics provides Prometheus metrics for the deployment core
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 部署核心的Prometheus指标收集器
type Metrics struct {
	registry *prometheus.Registry

	// 验证指标
	validationsTotal   prometheus.Counter
	validationFailures prometheus.Counter

	// 部署指标
	deploymentsStarted   prometheus.Counter
	deploymentsSucceeded prometheus.Counter
	deploymentsFailed    prometheus.Counter
	approvalsSubmitted   prometheus.Counter
	chainMismatches      prometheus.Counter
	deploymentStep       prometheus.Gauge
}

// Config 监控配置
type Config struct {
	Namespace string
	Subsystem string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Namespace: "grid",
		Subsystem: "deployer",
	}
}

// New 创建新的Metrics实例
func New(cfg Config) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		validationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "validations_total",
			Help:      "表单验证执行总数",
		}),
		validationFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "validation_failures_total",
			Help:      "表单验证失败总数",
		}),
		deploymentsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "deployments_started_total",
			Help:      "发起部署总数",
		}),
		deploymentsSucceeded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "deployments_succeeded_total",
			Help:      "部署成功总数",
		}),
		deploymentsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "deployments_failed_total",
			Help:      "部署失败总数",
		}),
		approvalsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "approvals_submitted_total",
			Help:      "授权交易提交总数",
		}),
		chainMismatches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "chain_mismatches_total",
			Help:      "链ID不匹配被拦截的部署总数",
		}),
		deploymentStep: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "deployment_step",
			Help:      "当前部署步骤(0=idle,1=approving,2=deploying,3=success,4=error)",
		}),
	}
}

// RecordValidation 记录一次验证及其结果
func (m *Metrics) RecordValidation(ok bool) {
	m.validationsTotal.Inc()
	if !ok {
		m.validationFailures.Inc()
	}
}

// RecordDeploymentStarted 记录发起部署
func (m *Metrics) RecordDeploymentStarted() {
	m.deploymentsStarted.Inc()
}

// RecordDeploymentOutcome 记录部署结果
func (m *Metrics) RecordDeploymentOutcome(success bool) {
	if success {
		m.deploymentsSucceeded.Inc()
	} else {
		m.deploymentsFailed.Inc()
	}
}

// RecordApprovalSubmitted 记录授权交易提交
func (m *Metrics) RecordApprovalSubmitted() {
	m.approvalsSubmitted.Inc()
}

// RecordChainMismatch 记录链ID不匹配拦截
func (m *Metrics) RecordChainMismatch() {
	m.chainMismatches.Inc()
}

// SetDeploymentStep 更新当前部署步骤
func (m *Metrics) SetDeploymentStep(step float64) {
	m.deploymentStep.Set(step)
}

// Handler 返回指标HTTP处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 返回底层registry（测试用）
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
