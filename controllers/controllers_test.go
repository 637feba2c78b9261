package controllers_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/canteen-app/controllers"
	"github.com/yeremiapane/canteen-app/database/dbtest"
	"github.com/yeremiapane/canteen-app/middlewares"
	"github.com/yeremiapane/canteen-app/models"
	"github.com/yeremiapane/canteen-app/session"
	"github.com/yeremiapane/canteen-app/upload"
	"github.com/yeremiapane/canteen-app/utils"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	utils.InitLogger()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

var (
	customer = &session.Session{ID: 10, Email: "asha@college.in", Name: "Asha Verma", Role: models.RoleCustomer}
	other    = &session.Session{ID: 11, Email: "vikram@college.in", Name: "Vikram", Role: models.RoleCustomer}
	staff    = &session.Session{ID: 20, Email: "ravi.k@canteen.in", Name: "Ravi Kumar", Role: models.RoleStaff}
)

// as fakes AuthMiddleware for handler tests.
func as(s *session.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middlewares.ContextSession, s)
		c.Request = c.Request.WithContext(session.WithContext(c.Request.Context(), s))
		c.Next()
	}
}

type response struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, r http.Handler, method, path string, body any, header ...string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp response
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func seedItem(t *testing.T, db *gorm.DB, name string, price float64, qty int, available bool) models.InventoryItem {
	t.Helper()
	item := models.InventoryItem{Name: name, Category: "Snacks", Price: price, Quantity: qty, IsAvailable: available}
	require.NoError(t, db.Create(&item).Error)
	return item
}

func TestRegisterLoginLogout(t *testing.T) {
	db := dbtest.Open(t)
	ac := controllers.NewAuthController(db, "service-secret")

	r := gin.New()
	r.POST("/register", ac.Register)
	r.POST("/login", ac.Login)
	authed := r.Group("/", middlewares.AuthMiddleware())
	authed.GET("/session", ac.Session)
	authed.POST("/logout", ac.Logout)

	w, _ := do(t, r, http.MethodPost, "/register", gin.H{"name": "Asha Verma", "email": "Asha@College.in", "password": "secret123"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp := do(t, r, http.MethodPost, "/register", gin.H{"email": "asha@college.in", "password": "another1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, resp.Status)

	w, _ = do(t, r, http.MethodPost, "/register", gin.H{"email": "cook@canteen.in", "password": "secret123", "role": "staff"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = do(t, r, http.MethodPost, "/register", gin.H{"email": "cook@canteen.in", "password": "secret123", "role": "staff"},
		middlewares.APIKeyHeader, "service-secret")
	assert.Equal(t, http.StatusCreated, w.Code)

	w, _ = do(t, r, http.MethodPost, "/login", gin.H{"email": "asha@college.in", "password": "wrong-one"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, resp = do(t, r, http.MethodPost, "/login", gin.H{"email": "asha@college.in", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token   string         `json:"token"`
		Session map[string]any `json:"session"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &login))
	require.NotEmpty(t, login.Token)
	assert.Equal(t, "customer", login.Session["role"])
	assert.Equal(t, "asha", login.Session["email_name"])
	assert.Equal(t, "AV", login.Session["initials"])

	bearer := "Bearer " + login.Token
	w, resp = do(t, r, http.MethodGet, "/session", nil, "Authorization", bearer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), "asha@college.in")

	w, _ = do(t, r, http.MethodPost, "/logout", nil, "Authorization", bearer)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodGet, "/session", nil, "Authorization", bearer)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInventoryCRUD(t *testing.T) {
	db := dbtest.Open(t)
	ic := controllers.NewInventoryController(db, nil)
	seedItem(t, db, "Hidden Special", 90, 5, false)

	r := gin.New()
	r.GET("/inventory", ic.ListMenu)
	s := r.Group("/staff", as(staff))
	s.GET("/inventory", ic.ListMenu)
	s.POST("/inventory", ic.CreateItem)
	s.PATCH("/inventory/:id", ic.UpdateItem)
	s.DELETE("/inventory/:id", ic.DeleteItem)

	w, resp := do(t, r, http.MethodPost, "/staff/inventory", gin.H{"name": "Masala Dosa", "category": "South Indian", "price": 60, "quantity": 20})
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.InventoryItem
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.True(t, created.IsAvailable)

	w, _ = do(t, r, http.MethodPost, "/staff/inventory", gin.H{"price": 60})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var list []models.InventoryItem
	_, resp = do(t, r, http.MethodGet, "/inventory", nil)
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Len(t, list, 1)

	_, resp = do(t, r, http.MethodGet, "/staff/inventory?all=true", nil)
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Len(t, list, 2)

	path := "/staff/inventory/" + itoa(created.ID)
	w, resp = do(t, r, http.MethodPatch, path, gin.H{"price": 65, "is_available": false})
	require.Equal(t, http.StatusOK, w.Code)
	var updated models.InventoryItem
	require.NoError(t, json.Unmarshal(resp.Data, &updated))
	assert.Equal(t, 65.0, updated.Price)
	assert.False(t, updated.IsAvailable)
	assert.Equal(t, "Masala Dosa", updated.Name)
	assert.Equal(t, 20, updated.Quantity)

	w, _ = do(t, r, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func multipartImage(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestUploadImage(t *testing.T) {
	db := dbtest.Open(t)
	dir := t.TempDir()
	uploader := upload.NewUploader(upload.NewLocalStore(dir, "http://canteen.test"), "menu-images")
	ic := controllers.NewInventoryController(db, uploader)
	item := seedItem(t, db, "Samosa", 15, 40, true)

	r := gin.New()
	r.POST("/staff/inventory/:id/image", as(staff), ic.UploadImage)
	r.POST("/customer/inventory/:id/image", as(customer), ic.UploadImage)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	send := func(path, filename string, content []byte) *httptest.ResponseRecorder {
		body, ct := multipartImage(t, filename, content)
		req := httptest.NewRequest(http.MethodPost, path, body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := send("/staff/inventory/"+itoa(item.ID)+"/image", "samosa.png", png)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored models.InventoryItem
	require.NoError(t, db.First(&stored, item.ID).Error)
	assert.Contains(t, stored.ImageURL, "http://canteen.test/uploads/menu-images/menu-")
	assert.Contains(t, stored.ImageURL, "-ravi.k-samosa.png")

	w = send("/staff/inventory/"+itoa(item.ID)+"/image", "notes.txt", []byte("just some text"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Please choose an image file")

	w = send("/customer/inventory/"+itoa(item.ID)+"/image", "samosa.png", png)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = send("/staff/inventory/9999/image", "samosa.png", png)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func transactionRouter(db *gorm.DB) *gin.Engine {
	cc := controllers.NewCartController(db)
	tc := controllers.NewTransactionController(db, nil)

	r := gin.New()
	for _, u := range []struct {
		prefix string
		sess   *session.Session
	}{{"/asha", customer}, {"/vikram", other}} {
		g := r.Group(u.prefix, as(u.sess))
		g.GET("/cart", cc.GetCart)
		g.POST("/cart", cc.SetCartItem)
		g.DELETE("/cart/:inventory_id", cc.RemoveCartItem)
		g.POST("/checkout", tc.Checkout)
		g.GET("/transactions/mine", tc.MyTransactions)
		g.GET("/transactions/:id", tc.GetTransaction)
		g.POST("/transactions/:id/pay", tc.Pay)
	}
	s := r.Group("/staff", as(staff))
	s.GET("/transactions", tc.StaffTransactions)
	s.POST("/transactions/:id/advance", tc.Advance)
	s.POST("/transactions/:id/reject", tc.Reject)
	s.PATCH("/transactions/:id/status", tc.SetStatus)
	s.POST("/transactions/:id/payment-failed", tc.PaymentFailed)
	return r
}

func TestCartCheckoutAndPay(t *testing.T) {
	db := dbtest.Open(t)
	r := transactionRouter(db)
	tea := seedItem(t, db, "Masala Tea", 10, 50, true)
	vada := seedItem(t, db, "Vada Pav", 25, 1, true)
	hidden := seedItem(t, db, "Old Special", 40, 10, false)

	w, _ := do(t, r, http.MethodPost, "/asha/cart", gin.H{"inventory_id": hidden.ID, "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = do(t, r, http.MethodPost, "/asha/cart", gin.H{"inventory_id": tea.ID, "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodPost, "/asha/cart", gin.H{"inventory_id": tea.ID, "quantity": 1})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodPost, "/asha/cart", gin.H{"inventory_id": tea.ID, "quantity": 3})
	require.Equal(t, http.StatusOK, w.Code)

	_, resp := do(t, r, http.MethodGet, "/asha/cart", nil)
	var cart struct {
		Items      []models.UserCart `json:"items"`
		Total      float64           `json:"total"`
		TotalLabel string            `json:"total_label"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &cart))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, 30.0, cart.Total)
	assert.Equal(t, "₹30.00", cart.TotalLabel)

	w, _ = do(t, r, http.MethodPost, "/asha/checkout", gin.H{"items": []gin.H{{"inventory_id": vada.ID, "quantity": 2}}})
	assert.Equal(t, http.StatusBadRequest, w.Code, "stock of one cannot serve two")

	w, _ = do(t, r, http.MethodPost, "/asha/checkout", gin.H{"payment_method": "bitcoin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = do(t, r, http.MethodPost, "/asha/checkout", gin.H{"payment_method": "upi"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order models.Transaction
	require.NoError(t, json.Unmarshal(resp.Data, &order))
	assert.Equal(t, 30.0, order.TotalAmount)
	assert.Equal(t, models.PaymentPending, order.PaymentStatus)
	assert.Equal(t, 1, order.TokenNumber)

	_, resp = do(t, r, http.MethodGet, "/asha/cart", nil)
	require.NoError(t, json.Unmarshal(resp.Data, &cart))
	assert.Empty(t, cart.Items)

	w, _ = do(t, r, http.MethodPost, "/asha/checkout", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty cart")

	path := "/transactions/" + itoa(order.ID)
	w, _ = do(t, r, http.MethodGet, "/vikram"+path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = do(t, r, http.MethodPost, "/vikram"+path+"/pay", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp = do(t, r, http.MethodPost, "/asha"+path+"/pay", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &order))
	assert.Equal(t, models.PaymentSuccess, order.PaymentStatus)

	w, _ = do(t, r, http.MethodPost, "/asha"+path+"/pay", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	var mine []models.Transaction
	_, resp = do(t, r, http.MethodGet, "/asha/transactions/mine", nil)
	require.NoError(t, json.Unmarshal(resp.Data, &mine))
	require.Len(t, mine, 1)
	assert.Len(t, mine[0].OrderItems, 1)
	_, resp = do(t, r, http.MethodGet, "/vikram/transactions/mine", nil)
	require.NoError(t, json.Unmarshal(resp.Data, &mine))
	assert.Empty(t, mine)
}

func checkoutAndPay(t *testing.T, r http.Handler, db *gorm.DB) models.Transaction {
	t.Helper()
	item := seedItem(t, db, "Idli", 30, 100, true)
	_, resp := do(t, r, http.MethodPost, "/asha/checkout", gin.H{"items": []gin.H{{"inventory_id": item.ID, "quantity": 1}}})
	var order models.Transaction
	require.NoError(t, json.Unmarshal(resp.Data, &order))
	require.NotZero(t, order.ID)
	w, _ := do(t, r, http.MethodPost, "/asha/transactions/"+itoa(order.ID)+"/pay", nil)
	require.Equal(t, http.StatusOK, w.Code)
	return order
}

func TestStaffOrderFlow(t *testing.T) {
	db := dbtest.Open(t)
	r := transactionRouter(db)

	unpaidItem := seedItem(t, db, "Poha", 20, 10, true)
	_, resp := do(t, r, http.MethodPost, "/vikram/checkout", gin.H{"items": []gin.H{{"inventory_id": unpaidItem.ID, "quantity": 1}}})
	var unpaid models.Transaction
	require.NoError(t, json.Unmarshal(resp.Data, &unpaid))

	order := checkoutAndPay(t, r, db)
	base := "/staff/transactions/" + itoa(order.ID)

	var list []models.Transaction
	_, resp = do(t, r, http.MethodGet, "/staff/transactions", nil)
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	require.Len(t, list, 1, "only paid orders by default")
	_, resp = do(t, r, http.MethodGet, "/staff/transactions?payment_status=all", nil)
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Len(t, list, 2)

	w, _ := do(t, r, http.MethodPost, "/staff/transactions/"+itoa(unpaid.ID)+"/advance", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	for _, want := range []string{models.OrderAccepted, models.OrderCooking, models.OrderReady, models.OrderDelivered, models.OrderDelivered} {
		w, resp := do(t, r, http.MethodPost, base+"/advance", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var got models.Transaction
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		assert.Equal(t, want, got.OrderStatus)
	}

	w, _ = do(t, r, http.MethodPost, base+"/reject", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	_, resp = do(t, r, http.MethodGet, "/staff/transactions?status=Delivered", nil)
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Len(t, list, 1)
	_, resp = do(t, r, http.MethodGet, "/staff/transactions?status=Pending,Accepted", nil)
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Empty(t, list)

	w, _ = do(t, r, http.MethodGet, "/staff/transactions?date=06-03-2024", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	second := checkoutAndPay(t, r, db)
	w, _ = do(t, r, http.MethodPost, "/staff/transactions/"+itoa(second.ID)+"/reject", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodPatch, "/staff/transactions/"+itoa(second.ID)+"/status", gin.H{"status": "Accepted"})
	assert.Equal(t, http.StatusConflict, w.Code)

	third := checkoutAndPay(t, r, db)
	w, resp = do(t, r, http.MethodPatch, "/staff/transactions/"+itoa(third.ID)+"/status", gin.H{"status": "Cancelled"})
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Transaction
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.Equal(t, models.OrderCancelled, got.OrderStatus)

	w, resp = do(t, r, http.MethodPost, "/staff/transactions/"+itoa(unpaid.ID)+"/payment-failed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.Equal(t, models.PaymentFailed, got.PaymentStatus)
	assert.Equal(t, models.OrderCancelled, got.OrderStatus)

	w, _ = do(t, r, http.MethodPost, "/staff/transactions/9999/advance", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = do(t, r, http.MethodPost, "/staff/transactions/abc/advance", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSystemEndpoints(t *testing.T) {
	db := dbtest.Open(t)
	sc := controllers.NewSystemController(db, nil)
	seedItem(t, db, "Chai", 10, 10, true)

	r := gin.New()
	r.GET("/ping", sc.Ping)
	r.GET("/status", sc.CanteenStatus)
	r.GET("/health", sc.Health)
	r.POST("/normalize", sc.NormalizeItems)
	r.POST("/orphans", sc.DeleteOrphans)

	w, _ := do(t, r, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")

	_, resp := do(t, r, http.MethodGet, "/status", nil)
	var status map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &status))
	assert.Equal(t, "06:00", status["opens"])
	assert.Equal(t, "19:00", status["closes"])

	w, resp = do(t, r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]int
	require.NoError(t, json.Unmarshal(resp.Data, &health))
	assert.Equal(t, 1, health["inventory"])

	require.NoError(t, db.Create(&models.OrderItem{TransactionID: 777, Name: "Ghost", Quantity: 1, Price: 5}).Error)
	_, resp = do(t, r, http.MethodPost, "/orphans", nil)
	assert.JSONEq(t, `{"deleted":1}`, string(resp.Data))

	w, _ = do(t, r, http.MethodPost, "/normalize", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
