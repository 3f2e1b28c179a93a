// v0
// internal/publish/topic.go
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

const adminTimeout = 10 * time.Second

// TopicSpec describes the partition layout expected for the export topic.
type TopicSpec struct {
	Brokers     []string
	Topic       string
	Partitions  int
	Replication int
}

func (s TopicSpec) validate() error {
	switch {
	case len(s.Brokers) == 0:
		return errors.New("at least one broker is required")
	case strings.TrimSpace(s.Topic) == "":
		return errors.New("topic is required")
	case s.Partitions < 1:
		return errors.New("partitions must be at least 1")
	case s.Replication < 1:
		return errors.New("replication must be positive")
	}
	return nil
}

// EnsureTopic creates the export topic through the cluster controller when
// missing and checks that its partition count matches.
func EnsureTopic(ctx context.Context, log *slog.Logger, spec TopicSpec) error {
	if err := spec.validate(); err != nil {
		return err
	}
	if log == nil {
		log = slog.Default()
	}

	broker := spec.Brokers[0]
	dialCtx, cancel := context.WithTimeout(ctx, adminTimeout)
	defer cancel()
	conn, err := kafka.DialContext(dialCtx, "tcp", broker)
	if err != nil {
		return fmt.Errorf("dial broker %s: %w", broker, err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Warn("broker_close", slog.Any("err", cerr))
		}
	}()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("fetch controller metadata: %w", err)
	}
	ctrlAddr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	ctrlCtx, ctrlCancel := context.WithTimeout(ctx, adminTimeout)
	defer ctrlCancel()
	admin, err := kafka.DialContext(ctrlCtx, "tcp", ctrlAddr)
	if err != nil {
		return fmt.Errorf("dial controller %s: %w", ctrlAddr, err)
	}
	defer func() {
		if cerr := admin.Close(); cerr != nil {
			log.Warn("controller_close", slog.Any("err", cerr))
		}
	}()
	if err := admin.SetDeadline(time.Now().Add(adminTimeout)); err != nil {
		log.Warn("controller_deadline", slog.Any("err", err))
	}

	err = admin.CreateTopics(kafka.TopicConfig{
		Topic:             spec.Topic,
		NumPartitions:     spec.Partitions,
		ReplicationFactor: spec.Replication,
	})
	switch {
	case err == nil:
		log.Info("export_topic_created",
			slog.String("topic", spec.Topic),
			slog.Int("partitions", spec.Partitions),
			slog.Int("replication", spec.Replication),
		)
	case topicExists(err):
		log.Info("export_topic_exists", slog.String("topic", spec.Topic))
	default:
		return fmt.Errorf("create topic %s: %w", spec.Topic, err)
	}

	partitions, err := admin.ReadPartitions(spec.Topic)
	if err != nil {
		return fmt.Errorf("read partitions for %s: %w", spec.Topic, err)
	}
	if got := countPartitions(partitions, spec.Topic); got != spec.Partitions {
		return fmt.Errorf("export topic %s has %d partitions; expected %d", spec.Topic, got, spec.Partitions)
	}
	log.Info("export_topic_ready", slog.String("topic", spec.Topic), slog.Int("partitions", spec.Partitions))
	return nil
}

func countPartitions(partitions []kafka.Partition, topic string) int {
	seen := make(map[int]struct{}, len(partitions))
	for _, p := range partitions {
		if p.Topic == topic {
			seen[p.ID] = struct{}{}
		}
	}
	return len(seen)
}

func topicExists(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, kafka.TopicAlreadyExists) {
		return true
	}
	return strings.Contains(err.Error(), "Topic with this name already exists")
}
