package integration

import (
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/jewelry-erp-api/lifecycle"
	"github.com/kendall-kelly/jewelry-erp-api/models"
	"github.com/kendall-kelly/jewelry-erp-api/services"
	"github.com/kendall-kelly/jewelry-erp-api/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// LedgerIntegrationTestSuite covers issuing material to karigars and receiving it back
type LedgerIntegrationTestSuite struct {
	suite.Suite
	db        *gorm.DB
	staff     *gin.Engine
	admin     *gin.Engine
	karigarID interface{}
	processID interface{}
}

// SetupSuite runs once before all tests
func (suite *LedgerIntegrationTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	testutil.MustSetTestEnvironment(suite.T())
}

// SetupTest registers master data through the API on a fresh database
func (suite *LedgerIntegrationTestSuite) SetupTest() {
	suite.db = testutil.NewTestDB(suite.T())
	wireServices(suite.db, lifecycle.PolicyStrict, services.NewMockS3Service())
	testutil.SeedUser(suite.T(), suite.db, "auth0|ravi", "Ravi", models.RoleStaff)
	testutil.SeedUser(suite.T(), suite.db, "auth0|asha", "Asha", models.RoleAdmin)
	suite.staff = newAPIRouter(testutil.MockAuthMiddleware("auth0|ravi", models.RoleStaff, "mock-token"))
	suite.admin = newAPIRouter(testutil.MockAuthMiddleware("auth0|asha", models.RoleAdmin, "mock-token"))

	w, response := doJSON(suite.staff, http.MethodPost, "/api/v1/karigars", map[string]interface{}{"code": "K-07", "name": "Suresh"})
	suite.Require().Equal(http.StatusCreated, w.Code, "Response body: %s", w.Body.String())
	suite.karigarID = dataOf(response)["id"]

	w, response = doJSON(suite.staff, http.MethodPost, "/api/v1/processes", map[string]interface{}{"name": "Casting"})
	suite.Require().Equal(http.StatusCreated, w.Code, "Response body: %s", w.Body.String())
	suite.processID = dataOf(response)["id"]
}

func (suite *LedgerIntegrationTestSuite) issue(gross string, extra map[string]interface{}) map[string]interface{} {
	body := map[string]interface{}{
		"karigar_id":   suite.karigarID,
		"process_id":   suite.processID,
		"pieces":       10,
		"gross_weight": gross,
	}
	for k, v := range extra {
		body[k] = v
	}
	w, response := doJSON(suite.staff, http.MethodPost, "/api/v1/issues", body)
	suite.Require().Equal(http.StatusCreated, w.Code, "Response body: %s", w.Body.String())
	return dataOf(response)
}

func grams(v interface{}) decimal.Decimal {
	s, _ := v.(string)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NewFromInt(-9999)
	}
	return d
}

// TestIssueReceiveSettle follows one issue from pending to completed
func (suite *LedgerIntegrationTestSuite) TestIssueReceiveSettle() {
	issue := suite.issue("20", map[string]interface{}{"stone_weight": "1.5"})
	assert.Equal(suite.T(), "ISS-20240307-001", issue["issue_no"])
	assert.True(suite.T(), grams(issue["net_weight"]).Equal(decimal.RequireFromString("18.5")))

	w, response := doJSON(suite.staff, http.MethodPost, "/api/v1/receipts", map[string]interface{}{
		"issue_id":       issue["id"],
		"pieces":         4,
		"gross_weight":   "8.25",
		"wastage_weight": "0.25",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, "Response body: %s", w.Body.String())
	first := dataOf(response)
	assert.True(suite.T(), grams(first["receipt"].(map[string]interface{})["net_weight"]).Equal(decimal.RequireFromString("8")))
	assert.Equal(suite.T(), "Partial", first["issue"].(map[string]interface{})["status"])

	w, response = doJSON(suite.staff, http.MethodPost, "/api/v1/receipts", map[string]interface{}{
		"issue_id":     issue["id"],
		"pieces":       6,
		"gross_weight": "12",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, "Response body: %s", w.Body.String())
	settled := dataOf(response)["issue"].(map[string]interface{})
	assert.Equal(suite.T(), "Completed", settled["status"])
	assert.True(suite.T(), grams(settled["balance"]).IsZero())
	assert.Equal(suite.T(), float64(10), settled["received_pieces"])

	w, response = doJSON(suite.staff, http.MethodGet, fmt.Sprintf("/api/v1/issues/%v", issue["id"]), nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Len(suite.T(), dataOf(response)["receipts"], 2)

	w, response = doJSON(suite.staff, http.MethodGet, fmt.Sprintf("/api/v1/issues/pending/by-karigar/%v", suite.karigarID), nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Empty(suite.T(), dataOf(response)["issues"])
}

// TestOverrideIsAudited checks only admins may push an issue past its weight
func (suite *LedgerIntegrationTestSuite) TestOverrideIsAudited() {
	issue := suite.issue("10", nil)
	over := map[string]interface{}{
		"issue_id":     issue["id"],
		"pieces":       10,
		"gross_weight": "10.4",
	}

	w, response := doJSON(suite.staff, http.MethodPost, "/api/v1/receipts", over)
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, w.Code)
	assert.Equal(suite.T(), "BALANCE_EXCEEDED", errorCodeOf(response))

	over["allow_override"] = true
	w, response = doJSON(suite.staff, http.MethodPost, "/api/v1/receipts", over)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.Equal(suite.T(), "FORBIDDEN", errorCodeOf(response))

	w, response = doJSON(suite.admin, http.MethodPost, "/api/v1/receipts", over)
	suite.Require().Equal(http.StatusCreated, w.Code, "Response body: %s", w.Body.String())
	receipt := dataOf(response)["receipt"].(map[string]interface{})
	assert.Equal(suite.T(), true, receipt["override_applied"])
	assert.True(suite.T(), grams(receipt["overage"]).Equal(decimal.RequireFromString("0.4")))
	assert.Equal(suite.T(), "RCP-20240307-001", receipt["receipt_no"])
}

// TestConcurrentReceiptsNeverOverdraw posts receipts in parallel against one issue
func (suite *LedgerIntegrationTestSuite) TestConcurrentReceiptsNeverOverdraw() {
	issue := suite.issue("10", nil)

	const attempts = 5
	codes := make([]int, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, _ := doJSON(suite.staff, http.MethodPost, "/api/v1/receipts", map[string]interface{}{
				"issue_id":     issue["id"],
				"pieces":       2,
				"gross_weight": "3",
			})
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	created, rejected := 0, 0
	for _, code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusUnprocessableEntity:
			rejected++
		}
	}
	assert.Equal(suite.T(), 3, created)
	assert.Equal(suite.T(), 2, rejected)

	w, response := doJSON(suite.staff, http.MethodGet, fmt.Sprintf("/api/v1/issues/%v", issue["id"]), nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	loaded := dataOf(response)
	assert.True(suite.T(), grams(loaded["received_weight"]).Equal(decimal.RequireFromString("9")))
	assert.Equal(suite.T(), "Partial", loaded["status"])
}

// TestStockRegisterWindow folds entries before the window into the opening balance
func (suite *LedgerIntegrationTestSuite) TestStockRegisterWindow() {
	issue := suite.issue("10", map[string]interface{}{"issue_date": "2024-03-01T09:00:00Z"})
	w, _ := doJSON(suite.staff, http.MethodPost, "/api/v1/receipts", map[string]interface{}{
		"issue_id":     issue["id"],
		"pieces":       4,
		"gross_weight": "4",
		"receipt_date": "2024-03-05T15:00:00Z",
	})
	suite.Require().Equal(http.StatusCreated, w.Code)

	w, response := doJSON(suite.staff, http.MethodGet, "/api/v1/stock-register?from=2024-03-04&to=2024-03-05", nil)
	suite.Require().Equal(http.StatusOK, w.Code, "Response body: %s", w.Body.String())
	data := dataOf(response)
	entries := data["entries"].([]interface{})
	suite.Require().Len(entries, 1)
	assert.Equal(suite.T(), models.TransactionReceipt, entries[0].(map[string]interface{})["transaction_type"])
	assert.True(suite.T(), grams(data["opening_gross"]).Equal(decimal.RequireFromString("10")))
	assert.True(suite.T(), grams(data["balance_gross"]).Equal(decimal.RequireFromString("6")))

	w, response = doJSON(suite.staff, http.MethodGet, "/api/v1/stock-register?from=2024-03-10", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Empty(suite.T(), dataOf(response)["entries"])
	assert.True(suite.T(), grams(dataOf(response)["balance_gross"]).Equal(decimal.RequireFromString("6")), "an empty window still reports what is outstanding")

	w, response = doJSON(suite.staff, http.MethodGet, "/api/v1/stock-register", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Len(suite.T(), dataOf(response)["entries"], 2)
}

// TestCorrectionsKeepRegisterInStep edits and deletes ledger records and checks the
// stock register still agrees with the issue
func (suite *LedgerIntegrationTestSuite) TestCorrectionsKeepRegisterInStep() {
	issue := suite.issue("10", map[string]interface{}{"issue_date": "2024-03-01T09:00:00Z"})
	w, response := doJSON(suite.staff, http.MethodPost, "/api/v1/receipts", map[string]interface{}{
		"issue_id":     issue["id"],
		"pieces":       4,
		"gross_weight": "4",
		"receipt_date": "2024-03-05T15:00:00Z",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, "Response body: %s", w.Body.String())
	receipt := dataOf(response)["receipt"].(map[string]interface{})

	w, response = doJSON(suite.staff, http.MethodPut, fmt.Sprintf("/api/v1/issues/%v", issue["id"]), map[string]interface{}{"gross_weight": "12"})
	suite.Require().Equal(http.StatusOK, w.Code, "Response body: %s", w.Body.String())
	assert.True(suite.T(), grams(dataOf(response)["balance"]).Equal(decimal.RequireFromString("8")))

	w, response = doJSON(suite.staff, http.MethodPut, fmt.Sprintf("/api/v1/receipts/%v", receipt["id"]), map[string]interface{}{"gross_weight": "5"})
	suite.Require().Equal(http.StatusOK, w.Code, "Response body: %s", w.Body.String())

	w, response = doJSON(suite.staff, http.MethodGet, fmt.Sprintf("/api/v1/receipts/issue/%v/summary", issue["id"]), nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.True(suite.T(), grams(dataOf(response)["balance"]).Equal(decimal.RequireFromString("7")))

	w, response = doJSON(suite.staff, http.MethodGet, "/api/v1/stock-register", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Len(suite.T(), dataOf(response)["entries"], 6, "each correction reverses the old entry and appends the new one")
	assert.True(suite.T(), grams(dataOf(response)["balance_gross"]).Equal(decimal.RequireFromString("7")))

	w, response = doJSON(suite.staff, http.MethodDelete, fmt.Sprintf("/api/v1/issues/%v", issue["id"]), nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	w, response = doJSON(suite.admin, http.MethodDelete, fmt.Sprintf("/api/v1/issues/%v", issue["id"]), nil)
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	assert.Equal(suite.T(), "INVALID_STATE", errorCodeOf(response))

	w, _ = doJSON(suite.admin, http.MethodDelete, fmt.Sprintf("/api/v1/receipts/%v", receipt["id"]), nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	w, _ = doJSON(suite.admin, http.MethodDelete, fmt.Sprintf("/api/v1/issues/%v", issue["id"]), nil)
	suite.Require().Equal(http.StatusOK, w.Code, "an issue can go once its receipts are gone")

	w, response = doJSON(suite.staff, http.MethodGet, "/api/v1/stock-register", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.True(suite.T(), grams(dataOf(response)["balance_gross"]).IsZero())
}

// TestLedgerIntegrationTestSuite runs the test suite
func TestLedgerIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerIntegrationTestSuite))
}
