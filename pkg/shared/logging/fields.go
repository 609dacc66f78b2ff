// Package logging provides a chainable builder for the structured log
// fields used across the triage pipeline, plus presets for the component
// families that log most often.
package logging

import "time"

// Fields is a structured set of log key/value pairs, built up by chaining
// the setter methods below.
type Fields map[string]interface{}

// NewFields returns an empty Fields set ready for chaining.
func NewFields() Fields {
	return Fields{}
}

func (f Fields) Component(name string) Fields {
	f["component"] = name
	return f
}

func (f Fields) Operation(name string) Fields {
	f["operation"] = name
	return f
}

func (f Fields) Resource(resourceType, name string) Fields {
	f["resource_type"] = resourceType
	if name != "" {
		f["resource_name"] = name
	}
	return f
}

func (f Fields) Duration(d time.Duration) Fields {
	f["duration_ms"] = d.Milliseconds()
	return f
}

func (f Fields) Error(err error) Fields {
	if err != nil {
		f["error"] = err.Error()
	}
	return f
}

func (f Fields) UserID(id string) Fields {
	if id != "" {
		f["user_id"] = id
	}
	return f
}

func (f Fields) RequestID(id string) Fields {
	f["request_id"] = id
	return f
}

func (f Fields) TraceID(id string) Fields {
	f["trace_id"] = id
	return f
}

func (f Fields) StatusCode(code int) Fields {
	f["status_code"] = code
	return f
}

func (f Fields) Method(method string) Fields {
	f["method"] = method
	return f
}

func (f Fields) URL(url string) Fields {
	f["url"] = url
	return f
}

func (f Fields) Count(n int) Fields {
	f["count"] = n
	return f
}

func (f Fields) Size(bytes int64) Fields {
	f["size_bytes"] = bytes
	return f
}

func (f Fields) Version(v string) Fields {
	f["version"] = v
	return f
}

func (f Fields) Custom(key string, value interface{}) Fields {
	f[key] = value
	return f
}

// ToLogrus flattens Fields into the map[string]interface{} shape logrus'
// WithFields expects.
func (f Fields) ToLogrus() map[string]interface{} {
	out := make(map[string]interface{}, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// KeysAndValues flattens Fields into the alternating key/value slice
// go-logr's Logger.Info/Error variadic arguments expect.
func (f Fields) KeysAndValues() []interface{} {
	out := make([]interface{}, 0, len(f)*2)
	for k, v := range f {
		out = append(out, k, v)
	}
	return out
}

// DatabaseFields presets the standard fields for a persistence operation.
func DatabaseFields(operation, table string) Fields {
	return NewFields().Component("database").Operation(operation).Resource("table", table)
}

// HTTPFields presets the standard fields for an HTTP request/response.
func HTTPFields(method, url string, statusCode int) Fields {
	return NewFields().Component("http").Method(method).URL(url).StatusCode(statusCode)
}

// WorkflowFields presets the standard fields for a workflow step.
func WorkflowFields(operation, workflowID string) Fields {
	return NewFields().Component("workflow").Operation(operation).Resource("workflow", workflowID)
}

// KubernetesFields presets the standard fields for a Kubernetes resource
// operation. Kept for parity with the logging conventions this package was
// adapted from; the triage pipeline itself has no Kubernetes component.
func KubernetesFields(operation, resourceType, name, namespace string) Fields {
	f := NewFields().Component("kubernetes").Operation(operation).Resource(resourceType, name)
	if namespace != "" {
		f["namespace"] = namespace
	}
	return f
}

// AIFields presets the standard fields for a model invocation.
func AIFields(operation, model string) Fields {
	return NewFields().Component("ai").Operation(operation).Custom("model", model)
}

// MetricsFields presets the standard fields for a metrics observation.
func MetricsFields(operation, metricName string, value float64) Fields {
	return NewFields().Component("metrics").Operation(operation).Custom("metric_name", metricName).Custom("value", value)
}

// SecurityFields presets the standard fields for a security-relevant event.
func SecurityFields(operation, subject string) Fields {
	return NewFields().Component("security").Operation(operation).Custom("subject", subject)
}

// PerformanceFields presets the standard fields for a timed operation
// outcome.
func PerformanceFields(operation string, d time.Duration, success bool) Fields {
	return NewFields().Component("performance").Operation(operation).Duration(d).Custom("success", success)
}
