// # BillDesk Voice Agent
//
// This repository provides the Go voice agent for the BEC BillDesk college fee
// payment portal. It wires a hosted real-time voice session to the fixed fee
// catalogue, exposes the fee-selection and payment-intent operations as
// callable tools for the model, and forwards UI-relevant actions to the
// frontend over a real-time channel.
package billdesk
