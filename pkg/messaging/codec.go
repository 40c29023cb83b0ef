/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package messaging

import (
	"encoding/json"
	"fmt"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
	jsonutils "github.com/amd-enterprise-ai/airm/pkg/utils/json"
)

// envelope peeks only at the discriminator so the concrete type can be
// allocated before the strict decode.
type envelope struct {
	MessageType v1.MessageType `json:"message_type"`
}

// ErrUnknownMessageType wraps a discriminator outside the wire contract.
// Consumers requeue these instead of acking, so a newer producer's messages
// survive a rolling upgrade.
type ErrUnknownMessageType struct {
	MessageType v1.MessageType
}

func (e *ErrUnknownMessageType) Error() string {
	return fmt.Sprintf("unknown message type %q", e.MessageType)
}

// Encode renders a message as its JSON wire form. Messages without a
// discriminator are refused; every constructor in the apis package sets one.
func Encode(msg v1.Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("cannot encode a nil message")
	}
	if !v1.KnownMessageType(msg.GetMessageType()) {
		return nil, &ErrUnknownMessageType{MessageType: msg.GetMessageType()}
	}
	return json.Marshal(msg)
}

// Decode parses the discriminator, allocates the concrete type and performs a
// strict decode so unrecognized fields fail loudly.
func Decode(data []byte) (v1.Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed message body: %w", err)
	}
	msg := v1.NewMessage(env.MessageType)
	if msg == nil {
		return nil, &ErrUnknownMessageType{MessageType: env.MessageType}
	}
	if err := jsonutils.UnmarshalWithCheck(data, msg); err != nil {
		return nil, fmt.Errorf("failed to decode %s message: %w", env.MessageType, err)
	}
	return msg, nil
}
