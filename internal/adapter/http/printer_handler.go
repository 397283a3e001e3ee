package http

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/entity"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/escpos"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/usecase"
	"github.com/gin-gonic/gin"
)

const idempotencyHeader = "X-Idempotency-Key"

// recentJobs caps the job list embedded in /status.
const recentJobs = 10

type ServiceInfo struct {
	Name    string
	Version string
}

type PrinterHandler struct {
	registry *usecase.Registry
	print    *usecase.PrintService
	info     ServiceInfo
	started  time.Time
	now      func() time.Time
}

func NewPrinterHandler(reg *usecase.Registry, svc *usecase.PrintService, info ServiceInfo) *PrinterHandler {
	return &PrinterHandler{registry: reg, print: svc, info: info, started: time.Now(), now: time.Now}
}

func (h *PrinterHandler) Health(c *gin.Context) {
	st := h.registry.Status()
	printer := gin.H{"connected": st.Connected, "model": nil, "port": nil, "error": nil, "lastPrint": nil}
	if st.Printer != nil {
		model := st.Printer.Model
		if model == "" {
			model = st.Printer.Name
		}
		printer["model"] = model
		printer["port"] = st.Printer.Address
	}
	if st.LastError != "" {
		printer["error"] = st.LastError
	}
	if st.LastPrint != nil {
		printer["lastPrint"] = st.LastPrint.UTC().Format(time.RFC3339)
	}

	now := h.now()
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"service":        h.info.Name,
		"version":        h.info.Version,
		"uptime_seconds": int64(now.Sub(h.started).Seconds()),
		"timestamp":      now.UTC().Format(time.RFC3339),
		"printer":        printer,
	})
}

func (h *PrinterHandler) Status(c *gin.Context) {
	st := h.registry.Status()
	jobs := h.print.Jobs()
	recent := jobs.Recent()
	if len(recent) > recentJobs {
		recent = recent[len(recent)-recentJobs:]
	}
	c.JSON(http.StatusOK, gin.H{
		"service_running": true,
		"status":          "online",
		"service":         h.info.Name,
		"version":         h.info.Version,
		"printer_ready":   st.Connected,
		"printer":         st,
		"printers":        h.registry.List(),
		"jobs":            jobs.Stats(),
		"recent_jobs":     recent,
	})
}

var discoverTypes = map[string]entity.PrinterType{
	"usb":       entity.PrinterUSB,
	"network":   entity.PrinterNetwork,
	"bluetooth": entity.PrinterBluetooth,
	"serial":    entity.PrinterSerial,
}

// Discover rescans every transport; /discover-printers/:type only filters
// what is reported.
func (h *PrinterHandler) Discover(c *gin.Context) {
	kind := strings.ToLower(c.Param("type"))
	want, scoped := discoverTypes[kind]
	if kind != "" && kind != "all" && !scoped {
		fail(c, "Printer discovery failed", entity.NewValidationError("type", "want usb, network, bluetooth, serial or all"), nil)
		return
	}

	printers, err := h.registry.Discover(c.Request.Context())
	if err != nil {
		fail(c, "Printer discovery failed", err, nil)
		return
	}
	if scoped {
		filtered := printers[:0]
		for _, p := range printers {
			if p.Type == want {
				filtered = append(filtered, p)
			}
		}
		printers = filtered
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "printers_found": len(printers), "printers": printers})
}

// ConnectPort serves /connect/*port; the wildcard lets tty paths through.
func (h *PrinterHandler) ConnectPort(c *gin.Context) {
	h.connect(c, strings.TrimPrefix(c.Param("port"), "/"))
}

type connectReq struct {
	PrinterID string `json:"printer_id"`
	Port      string `json:"port"`
}

func (h *PrinterHandler) ConnectPrinter(c *gin.Context) {
	var req connectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "Printer connection failed", entity.NewValidationError("body", "malformed JSON"), nil)
		return
	}
	id := req.PrinterID
	if id == "" {
		id = req.Port
	}
	h.connect(c, id)
}

func (h *PrinterHandler) connect(c *gin.Context, id string) {
	if id == "" {
		fail(c, "Printer connection failed", entity.NewValidationError("printer_id", "required"), nil)
		return
	}
	p, err := h.registry.Connect(c.Request.Context(), id)
	if err != nil {
		fail(c, "Printer connection failed", err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Printer connected", "printer": p})
}

func (h *PrinterHandler) Disconnect(c *gin.Context) {
	h.registry.Disconnect()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Printer disconnected"})
}

func (h *PrinterHandler) bindOrder(c *gin.Context, o *entity.Order) error {
	if err := c.ShouldBindJSON(o); err != nil {
		return entity.NewValidationError("body", "malformed order: "+err.Error())
	}
	return nil
}

func (h *PrinterHandler) PrintKitchen(c *gin.Context) {
	var o entity.Order
	if err := h.bindOrder(c, &o); err != nil {
		fail(c, "Kitchen printing failed", err, nil)
		return
	}
	job, err := h.print.PrintKitchen(c.Request.Context(), o, c.GetHeader(idempotencyHeader))
	if err != nil {
		fail(c, "Kitchen printing failed", err, jobFields(job))
		return
	}
	h.printed(c, "Kitchen ticket printed successfully", job, nil)
}

func (h *PrinterHandler) PrintCustomer(c *gin.Context) {
	var o entity.Order
	if err := h.bindOrder(c, &o); err != nil {
		fail(c, "Customer receipt printing failed", err, nil)
		return
	}
	job, err := h.print.PrintCustomer(c.Request.Context(), o, c.GetHeader(idempotencyHeader))
	if err != nil {
		fail(c, "Customer receipt printing failed", err, jobFields(job))
		return
	}
	total := o.TotalAmount
	if total.IsZero() {
		total = escpos.ReceiptTotal(o)
	}
	h.printed(c, "Customer receipt printed successfully", job, gin.H{"total": total.StringFixed(2)})
}

func (h *PrinterHandler) PrintTest(c *gin.Context) {
	job, err := h.print.PrintTest(c.Request.Context())
	if err != nil {
		fail(c, "Test print failed", err, jobFields(job))
		return
	}
	h.printed(c, "Test print sent", job, nil)
}

func (h *PrinterHandler) PrintGeneric(c *gin.Context) {
	var req usecase.GenericRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "Print job failed", entity.NewValidationError("body", "malformed JSON"), nil)
		return
	}
	job, err := h.print.PrintGeneric(c.Request.Context(), req, c.GetHeader(idempotencyHeader))
	if err != nil {
		fail(c, "Print job failed", err, jobFields(job))
		return
	}
	kind := req.Type
	if kind == "" {
		kind = string(job.Type)
	}
	h.printed(c, fmt.Sprintf("Print job completed for type: %s", kind), job, nil)
}

func (h *PrinterHandler) printed(c *gin.Context, message string, job entity.PrintJob, extra gin.H) {
	body := gin.H{"success": true, "message": message, "print_time": h.now().UTC().Format(time.RFC3339)}
	for k, v := range jobFields(job) {
		body[k] = v
	}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

func jobFields(job entity.PrintJob) gin.H {
	out := gin.H{}
	if job.ID != "" {
		out["job_id"] = job.ID
	}
	if job.OrderID != "" {
		out["order_id"] = job.OrderID
	}
	return out
}

func (h *PrinterHandler) Printers(c *gin.Context) {
	body := gin.H{"success": true, "printers": h.registry.List(), "current": nil}
	if p, ok := h.registry.Current(); ok {
		body["current"] = p
	}
	c.JSON(http.StatusOK, body)
}

func (h *PrinterHandler) Queue(c *gin.Context) {
	jobs := h.print.Jobs()
	c.JSON(http.StatusOK, gin.H{"success": true, "jobs": jobs.Recent(), "stats": jobs.Stats()})
}

func (h *PrinterHandler) Job(c *gin.Context) {
	job, ok := h.print.Jobs().Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "job not found"})
		return
	}
	resp := gin.H{"success": true, "job": job}
	// ?content=1 includes the formatted ESC/POS bytes
	if want, _ := strconv.ParseBool(c.Query("content")); want {
		resp["content_base64"] = base64.StdEncoding.EncodeToString(job.Content)
	}
	c.JSON(http.StatusOK, resp)
}
