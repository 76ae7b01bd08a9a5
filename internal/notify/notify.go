// Copyright 2026 The Checkpointd Authors
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

package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Event is the kind of mutation a change notification describes.
type Event string

const (
	EventCreate Event = "create"
	EventUpdate Event = "update"
	EventDelete Event = "delete"
)

// Record kinds published by the authorization core.
const (
	KindAccessGroup = "access_group"
	KindMembership  = "access_group_membership"
	KindSubtree     = "access_group_subtree"
	KindDomain      = "domain"
)

// Change is a single record-mutation notification.
type Change struct {
	ID         string         `json:"id"`
	Event      Event          `json:"event"`
	Kind       string         `json:"kind"`
	Attributes map[string]any `json:"attributes"`
}

// Sink receives change notifications for delivery to external
// subscribers. Publish is called synchronously after a mutation
// commits; a sink error never fails the originating mutation.
type Sink interface {
	Publish(ctx context.Context, change Change) error
}

// NopSink discards all notifications. Used in tests and ephemeral
// execution contexts where no subscribers exist.
type NopSink struct{}

func (NopSink) Publish(ctx context.Context, change Change) error {
	return nil
}

// SlogSink writes notifications to the structured log. It stands in
// for a message-bus publisher when none is configured.
type SlogSink struct{}

func (SlogSink) Publish(ctx context.Context, change Change) error {
	slog.InfoContext(ctx, "change_notification",
		slog.String("change_id", change.ID),
		slog.String("event", string(change.Event)),
		slog.String("kind", change.Kind),
		slog.Any("attributes", change.Attributes),
	)
	return nil
}

// NewChange builds a Change with a fresh event id.
func NewChange(event Event, kind string, attributes map[string]any) Change {
	return Change{
		ID:         uuid.NewString(),
		Event:      event,
		Kind:       kind,
		Attributes: attributes,
	}
}

// Publish delivers a change through the sink, logging and swallowing
// any sink failure.
func Publish(ctx context.Context, sink Sink, change Change) {
	if sink == nil {
		return
	}
	if err := sink.Publish(ctx, change); err != nil {
		slog.ErrorContext(ctx, "change notification dropped",
			slog.String("change_id", change.ID),
			slog.String("kind", change.Kind),
			slog.String("error", err.Error()),
		)
	}
}
