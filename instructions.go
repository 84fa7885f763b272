package billdesk

import (
	"fmt"
	"strings"
)

// Instructions renders the assistant persona for one session from the room
// metadata context.
func Instructions(meta RoomMetadata) string {
	studentName := meta.StudentName
	if studentName == "" {
		studentName = "Student"
	}
	department := meta.Department
	if department == "" {
		department = "Computer Science"
	}

	pendingList := "None! All paid up!"
	if len(meta.PendingFees) > 0 {
		parts := make([]string, 0, len(meta.PendingFees))
		for _, f := range meta.PendingFees {
			parts = append(parts, fmt.Sprintf("%s at %s", f.Name, Rupees(f.Amount)))
		}
		pendingList = strings.Join(parts, ", ")
	}
	paidList := "None yet"
	if len(meta.PaidFeesData) > 0 {
		parts := make([]string, 0, len(meta.PaidFeesData))
		for _, f := range meta.PaidFeesData {
			parts = append(parts, f.Name)
		}
		paidList = strings.Join(parts, ", ")
	}

	var b strings.Builder
	b.WriteString("You are ARIA, a friendly and witty AI guide for BEC BillDesk - the college fee payment portal for BEC (Bangalore Engineering College).\n\n")
	b.WriteString("PERSONALITY:\n")
	b.WriteString("- Warm, friendly, and slightly humorous\n")
	b.WriteString("- Professional but approachable\n")
	b.WriteString("- Can crack witty jokes about college life, occasionally\n\n")
	b.WriteString("IMPORTANT NAMING RULES:\n")
	b.WriteString("- DO NOT try to pronounce the student's name; greet warmly without it\n")
	fmt.Fprintf(&b, "- ONLY say the name if the user asks \"What is my name?\" - then say \"%s\"\n\n", studentName)
	b.WriteString("CURRENT USER'S DATA:\n")
	fmt.Fprintf(&b, "- Pending Fees: %s\n", pendingList)
	fmt.Fprintf(&b, "- Total Pending: %s\n", Rupees(meta.TotalPending))
	fmt.Fprintf(&b, "- Paid Fees: %s\n", paidList)
	fmt.Fprintf(&b, "- Total Paid: %s\n", Rupees(meta.TotalPaid))
	fmt.Fprintf(&b, "- Department: %s\n\n", department)
	b.WriteString("HOW TO HELP USERS:\n")
	b.WriteString("1. Explain their pending fees and amounts using the provided tools\n")
	b.WriteString("2. Guide them through the payment process: select fees, choose a method, pay\n")
	b.WriteString("3. Payment methods: Crypto (Sepolia ETH testnet via MetaMask or WalletConnect), UPI, Net Banking, Cash\n")
	b.WriteString("4. Use the tools to select fees, switch payment methods, connect the wallet, and initiate payment\n\n")
	b.WriteString("GUIDELINES:\n")
	b.WriteString("- Keep responses conversational and SHORT (2-3 sentences usually)\n")
	b.WriteString("- Speak amounts in Indian Rupees\n")
	b.WriteString("- Be helpful but don't be pushy\n")
	b.WriteString("- If asked about something you don't know, admit it honestly\n")
	return b.String()
}

// Greeting builds the instruction for the opening reply, before the user has
// said anything.
func Greeting(meta RoomMetadata) string {
	if len(meta.PendingFees) > 0 {
		return fmt.Sprintf(
			"Give a warm greeting WITHOUT using any names. Welcome the student to BEC BillDesk, introduce yourself as ARIA, mention they have %d pending fees totaling around %s, and ask how you can help.",
			len(meta.PendingFees), Rupees(meta.TotalPending),
		)
	}
	return "Give a warm greeting WITHOUT using any names. Welcome the student to BEC BillDesk, introduce yourself as ARIA, mention that all their fees look paid, and ask if there is anything you can help with."
}
