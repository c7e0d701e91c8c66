package async

import "go.opentelemetry.io/otel/attribute"

func attributeConsumer(name string) attribute.KeyValue {
	return attribute.String("consumer", name)
}
