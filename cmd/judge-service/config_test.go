package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "judge_service.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppConfigDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "logger:\n  level: info\n")
	cfg, err := loadAppConfig(path)
	if err != nil {
		t.Fatalf("loadAppConfig: %v", err)
	}
	if cfg.Server.Addr != defaultHTTPAddr {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.Tasks.Source != "local" || cfg.Tasks.Dir != defaultTaskDir {
		t.Fatalf("unexpected task config %+v", cfg.Tasks)
	}
	if cfg.Worker.PoolSize != defaultWorkerPool {
		t.Fatalf("unexpected pool size %d", cfg.Worker.PoolSize)
	}
	if cfg.Judge.VerdictTTL != time.Hour {
		t.Fatalf("unexpected verdict ttl %s", cfg.Judge.VerdictTTL)
	}
}

func TestLoadAppConfigKafkaTopicDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "kafka:\n  brokers: [\"localhost:9092\"]\n")
	cfg, err := loadAppConfig(path)
	if err != nil {
		t.Fatalf("loadAppConfig: %v", err)
	}
	if cfg.Kafka.EvaluateTopic != defaultEvaluateTopic {
		t.Fatalf("unexpected evaluate topic %q", cfg.Kafka.EvaluateTopic)
	}
	if cfg.Kafka.ResultTopic != defaultResultTopic {
		t.Fatalf("unexpected result topic %q", cfg.Kafka.ResultTopic)
	}
}

func TestLoadAppConfigRejectsMinioSourceWithoutEndpoint(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "tasks:\n  source: minio\n")
	if _, err := loadAppConfig(path); err == nil {
		t.Fatal("expected error for minio source without endpoint")
	}
}

func TestLoadAppConfigRejectsUnknownSource(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "tasks:\n  source: ftp\n")
	if _, err := loadAppConfig(path); err == nil {
		t.Fatal("expected error for unknown task source")
	}
}
