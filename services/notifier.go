package services

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	appConfig "github.com/lx-boutique/storefront-api/config"
	"github.com/lx-boutique/storefront-api/logger"
	"github.com/lx-boutique/storefront-api/metrics"
	"github.com/lx-boutique/storefront-api/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const receiptSendTimeout = 30 * time.Second

// Notifier delivers order receipts to customers
type Notifier interface {
	SendReceipt(ctx context.Context, order *models.Order) error
}

// SESAPI is the subset of the SES client used to send mail
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESNotifier sends receipts through Amazon SES
type SESNotifier struct {
	client SESAPI
	sender string
}

// LogNotifier only logs receipts. It is used when no sender address is configured.
type LogNotifier struct{}

var notifierInstance Notifier

// NewSESNotifier creates a notifier that sends from sender through client
func NewSESNotifier(client SESAPI, sender string) *SESNotifier {
	return &SESNotifier{client: client, sender: sender}
}

// InitNotifier picks the receipt notifier for cfg: SES when EMAIL_SENDER is
// set, a log-only notifier otherwise
func InitNotifier(ctx context.Context, cfg *appConfig.Config) (Notifier, error) {
	if cfg.EmailSender == "" {
		notifierInstance = LogNotifier{}
		return notifierInstance, nil
	}

	awsConfig, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	notifierInstance = NewSESNotifier(ses.NewFromConfig(awsConfig), cfg.EmailSender)
	return notifierInstance, nil
}

// GetNotifier returns the configured notifier
func GetNotifier() Notifier {
	return notifierInstance
}

// SetNotifier replaces the notifier (primarily for testing)
func SetNotifier(n Notifier) {
	notifierInstance = n
}

// DispatchReceipt sends the receipt in the background. The outcome is logged
// and counted; it never reaches the caller.
func DispatchReceipt(order *models.Order) {
	n := GetNotifier()
	if n == nil || order == nil {
		return
	}
	snapshot := *order

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), receiptSendTimeout)
		defer cancel()

		if err := n.SendReceipt(ctx, &snapshot); err != nil {
			metrics.RecordNotification("failed")
			logger.GetLogger().Error("Failed to send order receipt",
				zap.String("order_number", snapshot.OrderNumber),
				zap.Error(err))
			return
		}
		metrics.RecordNotification("sent")
	}()
}

// SendReceipt emails the receipt for order
func (n *SESNotifier) SendReceipt(ctx context.Context, order *models.Order) error {
	if order.CustomerEmail == "" {
		return fmt.Errorf("recipient email address is empty")
	}

	receipt, err := RenderReceipt(order)
	if err != nil {
		return err
	}

	_, err = n.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.sender),
		Destination: &types.Destination{
			ToAddresses: []string{order.CustomerEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(receipt.Subject)},
			Body: &types.Body{
				Html: &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(receipt.HTML)},
				Text: &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(receipt.Text)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	logger.GetLogger().Info("Order receipt sent",
		zap.String("order_number", order.OrderNumber),
		zap.String("recipient", order.CustomerEmail))
	return nil
}

// SendReceipt logs that a receipt would have been sent
func (LogNotifier) SendReceipt(_ context.Context, order *models.Order) error {
	logger.GetLogger().Info("EMAIL_SENDER not set, skipping order receipt",
		zap.String("order_number", order.OrderNumber))
	return nil
}

// Receipt is a rendered order receipt
type Receipt struct {
	Subject string
	HTML    string
	Text    string
}

type receiptLine struct {
	Name     string
	Size     string
	Quantity int
	Image    string
	Amount   string
}

type receiptView struct {
	CustomerName    string
	OrderNumber     string
	Date            string
	Lines           []receiptLine
	Subtotal        string
	Discount        string
	DiscountCode    string
	HasDiscount     bool
	Total           string
	ShippingAddress string
	ShippingCity    string
	ShippingRegion  string
	CustomerPhone   string
}

var receiptHTML = htmltemplate.Must(htmltemplate.New("receipt.html").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; color: #333; background: #f4f4f4;">
<div style="max-width: 600px; margin: 40px auto; background: #fff; border-radius: 12px; padding: 30px;">
  <h2 style="text-align: center;">Thank you for your order!</h2>
  <p>Dear {{.CustomerName}}, we've received your order and will process it shortly.</p>
  <p><strong>Order number:</strong> #{{.OrderNumber}}<br><strong>Date:</strong> {{.Date}}</p>
  <table style="width: 100%; border-collapse: collapse;">
    {{range .Lines}}
    <tr>
      <td style="padding: 12px 0; border-bottom: 1px solid #f0f0f0;">
        {{if .Image}}<img src="{{.Image}}" alt="{{.Name}}" style="width: 50px; height: 50px; object-fit: cover;">{{end}}
        <strong>{{.Name}}</strong>{{if .Size}} &middot; Size: {{.Size}}{{end}} &middot; Qty: {{.Quantity}}
      </td>
      <td style="padding: 12px 0; border-bottom: 1px solid #f0f0f0; text-align: right;">{{.Amount}}</td>
    </tr>
    {{end}}
  </table>
  <p style="text-align: right;">Subtotal: {{.Subtotal}}<br>
  {{if .HasDiscount}}Discount{{if .DiscountCode}} ({{.DiscountCode}}){{end}}: -{{.Discount}}<br>{{end}}
  <strong>Total: {{.Total}}</strong></p>
  <div style="background: #f9f9f9; padding: 20px; border-radius: 8px;">
    <strong>Delivery</strong><br>
    {{.ShippingAddress}}<br>{{.ShippingCity}}{{if .ShippingRegion}}, {{.ShippingRegion}}{{end}}<br>{{.CustomerPhone}}
  </div>
  <p style="font-size: 12px; color: #999; text-align: center;">Track your order any time with your order number and email address.</p>
</div>
</body>
</html>
`))

var receiptText = texttemplate.Must(texttemplate.New("receipt.txt").Parse(`Dear {{.CustomerName}},

Thank you for your order! We've received it and will process it shortly.

Order number: #{{.OrderNumber}}
Date: {{.Date}}

{{range .Lines}}- {{.Name}}{{if .Size}} (Size: {{.Size}}){{end}} x{{.Quantity}}: {{.Amount}}
{{end}}
Subtotal: {{.Subtotal}}
{{if .HasDiscount}}Discount{{if .DiscountCode}} ({{.DiscountCode}}){{end}}: -{{.Discount}}
{{end}}Total: {{.Total}}

Delivery:
{{.ShippingAddress}}
{{.ShippingCity}}{{if .ShippingRegion}}, {{.ShippingRegion}}{{end}}
{{.CustomerPhone}}

Track your order any time with your order number and email address.
`))

// FormatCurrency renders an amount the way receipts show it
func FormatCurrency(amount decimal.Decimal) string {
	return "GH₵" + amount.StringFixed(2)
}

// RenderReceipt builds the subject and HTML and text bodies of a receipt
func RenderReceipt(order *models.Order) (*Receipt, error) {
	view := receiptView{
		CustomerName:    order.CustomerName,
		OrderNumber:     order.OrderNumber,
		Date:            order.CreatedAt.UTC().Format("January 2, 2006"),
		Subtotal:        FormatCurrency(order.ItemsSubtotal()),
		Discount:        FormatCurrency(order.DiscountAmount),
		HasDiscount:     order.DiscountAmount.IsPositive(),
		Total:           FormatCurrency(order.Total),
		ShippingAddress: order.ShippingAddress,
		ShippingCity:    order.ShippingCity,
		ShippingRegion:  order.ShippingRegion,
		CustomerPhone:   order.CustomerPhone,
	}
	if order.DiscountCode != nil {
		view.DiscountCode = *order.DiscountCode
	}
	for _, item := range order.Items {
		view.Lines = append(view.Lines, receiptLine{
			Name:     item.Name,
			Size:     item.Size,
			Quantity: item.Quantity,
			Image:    item.Image,
			Amount:   FormatCurrency(item.Subtotal()),
		})
	}

	var html, text bytes.Buffer
	if err := receiptHTML.Execute(&html, view); err != nil {
		return nil, fmt.Errorf("failed to render receipt: %w", err)
	}
	if err := receiptText.Execute(&text, view); err != nil {
		return nil, fmt.Errorf("failed to render receipt: %w", err)
	}

	return &Receipt{
		Subject: fmt.Sprintf("Order Confirmation #%s", order.OrderNumber),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
