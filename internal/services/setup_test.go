package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yaswanth65/houseway-backend/internal/db"
	"github.com/yaswanth65/houseway-backend/internal/models"
	"github.com/yaswanth65/houseway-backend/internal/notify"
	"github.com/yaswanth65/houseway-backend/internal/policy"
	"github.com/yaswanth65/houseway-backend/internal/realtime"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

// fixtures is the standard cast: an owner, an employee and a client on one
// project, a vendor assigned to one approved material request.
type fixtures struct {
	Owner    policy.Actor
	Employee policy.Actor
	Vendor   policy.Actor
	Client   policy.Actor
	Project  models.Project
	Request  models.MaterialRequest
}

func seedFixtures(t *testing.T, gdb *gorm.DB) fixtures {
	t.Helper()

	users := []models.User{
		{Name: "Platform Owner", Email: "owner@houseway.test", Role: models.RoleOwner},
		{Name: "Site Engineer", Email: "engineer@houseway.test", Role: models.RoleEmployee},
		{Name: "Steel Supplies Co", Email: "vendor@houseway.test", Role: models.RoleVendor},
		{Name: "Homeowner", Email: "client@houseway.test", Role: models.RoleClient},
	}
	for i := range users {
		if err := gdb.Create(&users[i]).Error; err != nil {
			t.Fatalf("user: %v", err)
		}
	}
	owner, employee, vendor, client := users[0], users[1], users[2], users[3]

	project := models.Project{Name: "Lakeside Villa", ClientID: client.ID}
	if err := gdb.Create(&project).Error; err != nil {
		t.Fatalf("project: %v", err)
	}
	if err := gdb.Create(&models.ProjectAssignment{ProjectID: project.ID, UserID: employee.ID}).Error; err != nil {
		t.Fatalf("assignment: %v", err)
	}

	request := models.MaterialRequest{
		ProjectID:     project.ID,
		RequestedByID: employee.ID,
		Status:        models.MaterialRequestApproved,
		Items: []models.MaterialRequestItem{
			{Name: "TMT steel bar 12mm", Quantity: 100, Unit: "kg"},
			{Name: "Cement OPC 53", Quantity: 40, Unit: "bag"},
		},
	}
	if err := gdb.Create(&request).Error; err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := gdb.Create(&models.MaterialRequestVendor{MaterialRequestID: request.ID, VendorID: vendor.ID}).Error; err != nil {
		t.Fatalf("request vendor: %v", err)
	}

	return fixtures{
		Owner:    policy.Owner(owner.ID),
		Employee: policy.Employee(employee.ID, project.ID),
		Vendor:   policy.Vendor(vendor.ID),
		Client:   policy.Client(client.ID, project.ID),
		Project:  project,
		Request:  request,
	}
}

// captureBroadcaster records published events for assertions.
type captureBroadcaster struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (c *captureBroadcaster) Publish(_ context.Context, ev realtime.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captureBroadcaster) names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.Name
	}
	return out
}

// engine bundles the services under test over one database.
type engine struct {
	db         *gorm.DB
	broadcasts *captureBroadcaster
	acceptance *AcceptanceService
	channel    *ChannelService
	orders     *OrderService
	delivery   *DeliveryService
	invoices   *InvoiceService
}

func newEngine(t *testing.T) (*engine, fixtures) {
	t.Helper()
	gdb := setupTestDB(t)
	fx := seedFixtures(t, gdb)
	bc := &captureBroadcaster{}
	return &engine{
		db:         gdb,
		broadcasts: bc,
		acceptance: NewAcceptanceService(gdb, notify.Nop{}),
		channel:    NewChannelService(gdb, bc),
		orders:     NewOrderService(gdb, bc, notify.Nop{}),
		delivery:   NewDeliveryService(gdb, bc, notify.Nop{}),
		invoices:   NewInvoiceService(gdb),
	}, fx
}

// negotiatedOrder walks an order to in_negotiation with one pending quotation
// of 50000 and returns both.
func (e *engine) negotiatedOrder(t *testing.T, fx fixtures) (*models.Order, *models.Message) {
	t.Helper()
	ctx := context.Background()
	order, err := e.acceptance.AcceptMaterialRequest(ctx, fx.Vendor, fx.Request.ID)
	if err != nil {
		t.Fatalf("accept request: %v", err)
	}
	if _, err := e.orders.Acknowledge(ctx, fx.Vendor, order.ID); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	quote, err := e.orders.SubmitQuotation(ctx, fx.Vendor, order.ID, QuotationInput{
		Items: []models.MessageItem{
			{Name: "TMT steel bar 12mm", Quantity: 100, Unit: "kg", UnitPrice: 350},
			{Name: "Cement OPC 53", Quantity: 40, Unit: "bag", UnitPrice: 375},
		},
	})
	if err != nil {
		t.Fatalf("submit quotation: %v", err)
	}
	order, err = e.orders.Get(ctx, fx.Owner, order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	return order, quote
}
