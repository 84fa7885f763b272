// Package tools exposes the conversational operations as a function-calling
// surface for the realtime model and dispatches completed tool calls onto the
// session state machine.
package tools

// ParamDef describes the single string parameter a tool takes, if any.
type ParamDef struct {
	Name        string
	Description string
}

// Def is one callable tool: name, natural-language description, and an
// optional string parameter.
type Def struct {
	Name        string
	Description string
	Param       *ParamDef
}

// Schema renders the definition in the function-tool shape the realtime
// session accepts.
func (d Def) Schema() map[string]any {
	properties := map[string]any{}
	required := []string{}
	if d.Param != nil {
		properties[d.Param.Name] = map[string]any{
			"type":        "string",
			"description": d.Param.Description,
		}
		required = append(required, d.Param.Name)
	}
	return map[string]any{
		"type":        "function",
		"name":        d.Name,
		"description": d.Description,
		"parameters": map[string]any{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}

// Defs lists every tool the agent exposes.
func Defs() []Def {
	return []Def{
		{
			Name:        "get_pending_fees",
			Description: "Get list of all pending fees that the student needs to pay, including amounts and due dates",
		},
		{
			Name:        "get_fee_details",
			Description: "Get detailed breakdown of a specific fee (e.g., tuition, hostel, development, examination)",
			Param: &ParamDef{
				Name:        "fee_name",
				Description: "Name of the fee to get details for (tuition, hostel, development, examination)",
			},
		},
		{
			Name:        "get_paid_fees",
			Description: "Get list of fees that have already been paid by the student",
		},
		{
			Name:        "select_fee",
			Description: "Select a specific fee for payment by clicking its checkbox in the UI",
			Param: &ParamDef{
				Name:        "fee_name",
				Description: "Name of the fee to select (tuition, hostel, development, examination)",
			},
		},
		{
			Name:        "deselect_fee",
			Description: "Deselect a fee that was previously selected for payment",
			Param: &ParamDef{
				Name:        "fee_name",
				Description: "Name of the fee to deselect",
			},
		},
		{
			Name:        "select_all_fees",
			Description: "Select all pending fees at once for batch payment",
		},
		{
			Name:        "select_payment_method",
			Description: "Switch to a specific payment method (crypto, upi, netbanking, cash)",
			Param: &ParamDef{
				Name:        "method",
				Description: "Payment method to use: 'crypto' for cryptocurrency/MetaMask, 'upi' for UPI, 'netbanking' for Net Banking, 'cash' for Cash payment",
			},
		},
		{
			Name:        "connect_wallet",
			Description: "Open the wallet connection popup to connect MetaMask or other crypto wallets for payment",
		},
		{
			Name:        "initiate_payment",
			Description: "Start the payment process for selected fees. For crypto, this sends the transaction to the wallet for confirmation.",
		},
		{
			Name:        "get_total_selected",
			Description: "Get the total amount of currently selected fees",
		},
	}
}

// Schemas renders every tool definition for a session.update.
func Schemas() []map[string]any {
	defs := Defs()
	out := make([]map[string]any, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.Schema())
	}
	return out
}
