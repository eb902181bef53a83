package notify

import (
	"fmt"
	"html"

	"github.com/naybourhood/naybourhood-server/internal/domain"
	"github.com/naybourhood/naybourhood-server/internal/pkg/format"
)

// AssignmentAlert builds the email sent to a developer when a buyer
// lead is exclusively assigned to them.
func AssignmentAlert(to string, buyer *domain.Buyer) *Email {
	name := html.EscapeString(buyer.Name)
	development := html.EscapeString(buyer.Development)
	budget := html.EscapeString(format.Budget(buyer.Budget))
	timeline := html.EscapeString(buyer.Timeline)
	location := html.EscapeString(buyer.Location)

	htmlBody := fmt.Sprintf(`<h2>New lead assigned: %s</h2>
<p>An exclusive buyer lead has been assigned to you.</p>
<table cellpadding="4">
<tr><td><strong>Name</strong></td><td>%s</td></tr>
<tr><td><strong>Development</strong></td><td>%s</td></tr>
<tr><td><strong>Budget</strong></td><td>%s</td></tr>
<tr><td><strong>Timeline</strong></td><td>%s</td></tr>
<tr><td><strong>Location</strong></td><td>%s</td></tr>
<tr><td><strong>Score</strong></td><td>%d</td></tr>
</table>
<p>Contact details are available in your dashboard. This lead is held exclusively for you while the assignment is active.</p>`,
		name, name, development, budget, timeline, location, buyer.Score())

	textBody := fmt.Sprintf(
		"New lead assigned: %s\n\nDevelopment: %s\nBudget: %s\nTimeline: %s\nLocation: %s\nScore: %d\n\nContact details are available in your dashboard.",
		buyer.Name, buyer.Development, format.Budget(buyer.Budget), buyer.Timeline, buyer.Location, buyer.Score())

	return &Email{
		To:       to,
		Subject:  fmt.Sprintf("New lead assigned: %s", buyer.Name),
		HTMLBody: htmlBody,
		TextBody: textBody,
	}
}

// PaymentFailureNotice builds the email sent when a subscription
// payment fails and the account drops to past_due.
func PaymentFailureNotice(to, portalURL string) *Email {
	htmlBody := fmt.Sprintf(`<h2>Payment failed</h2>
<p>We could not collect your latest subscription payment. Your account is now past due and paid features are paused until payment succeeds.</p>
<p><a href="%s">Update your payment method</a> to restore access.</p>`,
		html.EscapeString(portalURL))

	textBody := fmt.Sprintf(
		"Payment failed\n\nWe could not collect your latest subscription payment. Your account is now past due and paid features are paused until payment succeeds.\n\nUpdate your payment method: %s",
		portalURL)

	return &Email{
		To:       to,
		Subject:  "Action needed: subscription payment failed",
		HTMLBody: htmlBody,
		TextBody: textBody,
	}
}
