package export

import (
	"io"
	"strconv"
	"strings"
	"time"

	"storefront/internal/domain/model"

	"github.com/tealeg/xlsx"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	timeLayout  = "2006-01-02 15:04:05"
)

var productHeaders = []string{
	"ID", "Category", "Name", "Color", "Sizes", "Description",
	"Price", "Image", "AverageRating", "ReviewCount", "CreatedAt", "UpdatedAt",
}

var orderHeaders = []string{
	"ID", "UserID", "Status", "PaymentStatus", "PaymentMethod", "TotalPrice",
	"Items", "ShippingAddress", "IsPaid", "IsDelivered", "CreatedAt",
}

func WriteProducts(w io.Writer, products []model.Product) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return err
	}
	addHeader(sheet, productHeaders)

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetInt64(p.ID)
		row.AddCell().SetString(p.Category)
		row.AddCell().SetString(p.Name)
		row.AddCell().SetString(p.Color)
		row.AddCell().SetString(strings.Join(p.Sizes, ","))
		row.AddCell().SetString(p.Description)
		row.AddCell().SetInt64(p.Price)
		row.AddCell().SetString(p.Image)
		row.AddCell().SetFloat(p.AverageRating)
		row.AddCell().SetInt64(p.ReviewCount)
		row.AddCell().SetString(formatTime(p.CreatedAt))
		row.AddCell().SetString(formatTime(p.UpdatedAt))
	}

	return file.Write(w)
}

// itemsは注文IDごとの明細
func WriteOrders(w io.Writer, orders []model.Order, items map[int64][]model.OrderItem) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return err
	}
	addHeader(sheet, orderHeaders)

	for _, o := range orders {
		row := sheet.AddRow()
		row.AddCell().SetInt64(o.ID)
		row.AddCell().SetInt64(o.UserID)
		row.AddCell().SetString(string(o.Status))
		row.AddCell().SetString(string(o.PaymentStatus))
		row.AddCell().SetString(string(o.PaymentMethod))
		row.AddCell().SetInt64(o.TotalPrice)
		row.AddCell().SetString(itemSummary(items[o.ID]))
		row.AddCell().SetString(shippingSummary(o.ShippingAddress))
		row.AddCell().SetBool(o.IsPaid)
		row.AddCell().SetBool(o.IsDelivered)
		row.AddCell().SetString(formatTime(o.CreatedAt))
	}

	return file.Write(w)
}

func addHeader(sheet *xlsx.Sheet, headers []string) {
	row := sheet.AddRow()
	for _, h := range headers {
		row.AddCell().SetString(h)
	}
}

// "名前 x数量" をカンマ区切り
func itemSummary(items []model.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, it.Name+" x"+strconv.FormatInt(it.Quantity, 10))
	}
	return strings.Join(parts, ", ")
}

func shippingSummary(a model.ShippingAddress) string {
	parts := make([]string, 0, 4)
	for _, s := range []string{a.Address, a.City, a.PostalCode, a.Country} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}
