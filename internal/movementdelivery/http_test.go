package movementdelivery

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/go-petr/movement-engine/internal/domain"
	"github.com/go-petr/movement-engine/internal/middleware"
	"github.com/go-petr/movement-engine/internal/validation"
	"github.com/go-petr/movement-engine/pkg/errorspkg"
	"github.com/go-petr/movement-engine/pkg/randompkg"
	"github.com/go-petr/movement-engine/pkg/tokenpkg"
	"github.com/go-petr/movement-engine/pkg/web"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := validation.RegisterBindings(v); err != nil {
			panic(err)
		}
	}

	os.Exit(m.Run())
}

type testCase struct {
	name           string
	method         string
	path           string
	body           any
	setupAuth      func(t *testing.T, r *http.Request) error
	buildStubs     func(service *MockService)
	wantStatusCode int
	wantError      string
	checkData      func(t *testing.T, res *httptest.ResponseRecorder)
}

func runCases(t *testing.T, tokenMaker tokenpkg.Maker, testCases []testCase) {
	t.Helper()

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// Initialize mocks
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			service := NewMockService(ctrl)
			handler := NewHandler(service)

			server := gin.New()
			handler.Register(server.Group("/").Use(middleware.AuthMiddleware(tokenMaker)))

			tc.buildStubs(service)

			// Send request
			var body bytes.Buffer
			if tc.body != nil {
				if err := json.NewEncoder(&body).Encode(tc.body); err != nil {
					t.Fatalf("Encoding request body error: %v", err)
				}
			}

			req, err := http.NewRequest(tc.method, tc.path, &body)
			if err != nil {
				t.Fatalf("Creating request error: %v", err)
			}

			if err = tc.setupAuth(t, req); err != nil {
				t.Fatalf("tc.setupAuth(t, %+v) returned error: %v", req, err)
			}

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, req)

			// Test response
			if got := recorder.Code; got != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}

			if tc.wantError != "" {
				var res web.Response
				if err := json.NewDecoder(recorder.Body).Decode(&res); err != nil {
					t.Fatalf("Decoding response body error: %v", err)
				}

				if res.Error != tc.wantError {
					t.Errorf(`resp.Error=%q, want %q`, res.Error, tc.wantError)
				}

				return
			}

			if tc.checkData != nil {
				tc.checkData(t, recorder)
			}
		})
	}
}

func checkMovement(want domain.Movement) func(t *testing.T, res *httptest.ResponseRecorder) {
	return func(t *testing.T, res *httptest.ResponseRecorder) {
		got := web.Response{
			Data: &struct {
				Movement domain.Movement `json:"movement"`
			}{},
		}

		if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
			t.Fatalf("Decoding response body error: %v", err)
		}

		data := got.Data.(*struct {
			Movement domain.Movement `json:"movement"`
		})

		if diff := cmp.Diff(want, data.Movement); diff != "" {
			t.Errorf("res.Data mismatch (-want +got):\n%s", diff)
		}
	}
}

func newTokenMaker(t *testing.T) tokenpkg.Maker {
	t.Helper()

	tokenSymmetricKey := randompkg.String(32)

	tokenMaker, err := tokenpkg.NewPasetoMaker(tokenSymmetricKey)
	if err != nil {
		t.Fatalf("tokenpkg.NewPasetoMaker(%v) returned error: %v", tokenSymmetricKey, err)
	}

	return tokenMaker
}

func authAs(tokenMaker tokenpkg.Maker, clientGUID string) func(t *testing.T, r *http.Request) error {
	return func(t *testing.T, r *http.Request) error {
		return middleware.AddAuthorization(r, tokenMaker, middleware.AuthTypeBearer, clientGUID, time.Minute)
	}
}

func noAuth(t *testing.T, r *http.Request) error {
	return nil
}

func randomMovement(clientGUID string, v domain.Variant) domain.Movement {
	return domain.Movement{
		ID:         randompkg.IntBetween(1, 1000),
		GUID:       uuid.NewString(),
		ClientGUID: clientGUID,
		Variant:    v,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
}

func TestCreateTransfer(t *testing.T) {
	tokenMaker := newTokenMaker(t)
	clientGUID := randompkg.ClientGUID()

	transfer := domain.Transfer{
		FromIBAN:    randompkg.IBAN(),
		ToIBAN:      randompkg.IBAN(),
		Amount:      domain.MustParseMoney("60.00"),
		Beneficiary: "Jane",
	}
	movement := randomMovement(clientGUID, domain.TransferVariant(transfer))

	body := gin.H{
		"from_iban":   transfer.FromIBAN,
		"to_iban":     transfer.ToIBAN,
		"amount":      "60.00",
		"beneficiary": "Jane",
	}

	const path = "/movements/transfers"

	testCases := []testCase{
		{
			name:      "OK",
			body:      body,
			setupAuth: authAs(tokenMaker, clientGUID),
			buildStubs: func(service *MockService) {
				service.EXPECT().
					SubmitTransfer(gomock.Any(), gomock.Eq(clientGUID), gomock.Eq(transfer)).
					Times(1).
					Return(movement, nil)
			},
			wantStatusCode: http.StatusOK,
			checkData:      checkMovement(movement),
		},
		{
			name:      "NoAuthorization",
			body:      body,
			setupAuth: noAuth,
			buildStubs: func(service *MockService) {
				service.EXPECT().SubmitTransfer(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusUnauthorized,
			wantError:      middleware.ErrAuthHeaderNotFound.Error(),
		},
		{
			name:      "MissingOrigin",
			body:      gin.H{"to_iban": transfer.ToIBAN, "amount": "60.00"},
			setupAuth: authAs(tokenMaker, clientGUID),
			buildStubs: func(service *MockService) {
				service.EXPECT().SubmitTransfer(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "FromIBAN field is required",
		},
		{
			name:      "ZeroAmount",
			body:      gin.H{"from_iban": transfer.FromIBAN, "to_iban": transfer.ToIBAN, "amount": "0"},
			setupAuth: authAs(tokenMaker, clientGUID),
			buildStubs: func(service *MockService) {
				service.EXPECT().SubmitTransfer(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Amount must be a positive amount with at most two decimals",
		},
		{
			name:      "MalformedBody",
			body:      "not an object",
			setupAuth: authAs(tokenMaker, clientGUID),
			buildStubs: func(service *MockService) {
				service.EXPECT().SubmitTransfer(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "malformed request",
		},
		{
			name:      "AccountNotFound",
			body:      body,
			setupAuth: authAs(tokenMaker, clientGUID),
			buildStubs: func(service *MockService) {
				service.EXPECT().
					SubmitTransfer(gomock.Any(), gomock.Eq(clientGUID), gomock.Eq(transfer)).
					Times(1).
					Return(domain.Movement{}, domain.NewNotFoundError(domain.ErrAccountNotFound, transfer.ToIBAN))
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      "account not found: " + transfer.ToIBAN,
		},
		{
			name:      "InsufficientFunds",
			body:      body,
			setupAuth: authAs(tokenMaker, clientGUID),
			buildStubs: func(service *MockService) {
				err := &domain.InsufficientFundsError{IBAN: transfer.FromIBAN, Balance: domain.MustParseMoney("10")}
				service.EXPECT().
					SubmitTransfer(gomock.Any(), gomock.Eq(clientGUID), gomock.Eq(transfer)).
					Times(1).
					Return(domain.Movement{}, err)
			},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "insufficient funds in account " + transfer.FromIBAN + ", current balance 10.00",
		},
		{
			name:      "Contention",
			body:      body,
			setupAuth: authAs(tokenMaker, clientGUID),
			buildStubs: func(service *MockService) {
				service.EXPECT().
					SubmitTransfer(gomock.Any(), gomock.Eq(clientGUID), gomock.Eq(transfer)).
					Times(1).
					Return(domain.Movement{}, &domain.ContentionError{Key: "account:" + transfer.FromIBAN})
			},
			wantStatusCode: http.StatusConflict,
			wantError:      "resource busy, retry later: account:" + transfer.FromIBAN,
		},
		{
			name:      "InternalServerError",
			body:      body,
			setupAuth: authAs(tokenMaker, clientGUID),
			buildStubs: func(service *MockService) {
				service.EXPECT().
					SubmitTransfer(gomock.Any(), gomock.Eq(clientGUID), gomock.Eq(transfer)).
					Times(1).
					Return(domain.Movement{}, errorspkg.ErrInternal)
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      errorspkg.ErrInternal.Error(),
		},
	}

	for i := range testCases {
		testCases[i].method = http.MethodPost
		testCases[i].path = path
	}

	runCases(t, tokenMaker, testCases)
}

func TestCreateCardPayment(t *testing.T) {
	tokenMaker := newTokenMaker(t)
	clientGUID := randompkg.ClientGUID()

	payment := domain.CardPayment{
		CardNumber: randompkg.CardNumber(),
		Amount:     domain.MustParseMoney("12.34"),
		Merchant:   "Bakery",
	}

	resolved := payment
	resolved.AccountIBAN = randompkg.IBAN()
	movement := randomMovement(clientGUID, domain.CardPaymentVariant(resolved))

	body := gin.H{"card_number": payment.CardNumber, "amount": "12.34", "merchant": "Bakery"}

	testCases := []testCase{
		{
			name:      "OK",
			body:      body,
			setupAuth: authAs(tokenMaker, clientGUID),
			buildStubs: func(service *MockService) {
				service.EXPECT().
					SubmitCardPayment(gomock.Any(), gomock.Eq(clientGUID), gomock.Eq(payment)).
					Times(1).
					Return(movement, nil)
			},
			wantStatusCode: http.StatusOK,
			checkData:      checkMovement(movement),
		},
		{
			name:      "MissingCardNumber",
			body:      gin.H{"amount": "12.34"},
			setupAuth: authAs(tokenMaker, clientGUID),
			buildStubs: func(service *MockService) {
				service.EXPECT().SubmitCardPayment(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "CardNumber field is required",
		},
		{
			name:      "TooManyDecimals",
			body:      gin.H{"card_number": payment.CardNumber, "amount": "12.345"},
			setupAuth: authAs(tokenMaker, clientGUID),
			buildStubs: func(service *MockService) {
				service.EXPECT().SubmitCardPayment(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Amount must be a positive amount with at most two decimals",
		},
		{
			name:      "AccountNotFoundByCard",
			body:      body,
			setupAuth: authAs(tokenMaker, clientGUID),
			buildStubs: func(service *MockService) {
				service.EXPECT().
					SubmitCardPayment(gomock.Any(), gomock.Eq(clientGUID), gomock.Eq(payment)).
					Times(1).
					Return(domain.Movement{}, domain.NewNotFoundError(domain.ErrAccountNotFoundByCard, payment.CardNumber))
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      "account not found by card: " + payment.CardNumber,
		},
	}

	for i := range testCases {
		testCases[i].method = http.MethodPost
		testCases[i].path = "/movements/card-payments"
	}

	runCases(t, tokenMaker, testCases)
}

func TestCreatePayrollDeposit(t *testing.T) {
	tokenMaker := newTokenMaker(t)
	clientGUID := randompkg.ClientGUID()

	deposit := domain.PayrollDeposit{
		FromIBAN:     randompkg.IBAN(),
		ToIBAN:       randompkg.IBAN(),
		Amount:       domain.MustParseMoney("1500"),
		Company:      "ACME",
		CompanyTaxID: "B12345678",
	}
	movement := randomMovement(clientGUID, domain.PayrollDepositVariant(deposit))

	body := gin.H{
		"from_iban":      deposit.FromIBAN,
		"to_iban":        deposit.ToIBAN,
		"amount":         "1500",
		"company":        "ACME",
		"company_tax_id": "B12345678",
	}

	testCases := []testCase{
		{
			name:      "OK",
			body:      body,
			setupAuth: authAs(tokenMaker, clientGUID),
			buildStubs: func(service *MockService) {
				service.EXPECT().
					SubmitPayrollDeposit(gomock.Any(), gomock.Eq(clientGUID), gomock.Eq(deposit)).
					Times(1).
					Return(movement, nil)
			},
			wantStatusCode: http.StatusOK,
			checkData:      checkMovement(movement),
		},
		{
			name:      "ClientNotFound",
			body:      body,
			setupAuth: authAs(tokenMaker, clientGUID),
			buildStubs: func(service *MockService) {
				service.EXPECT().
					SubmitPayrollDeposit(gomock.Any(), gomock.Eq(clientGUID), gomock.Eq(deposit)).
					Times(1).
					Return(domain.Movement{}, domain.NewNotFoundError(domain.ErrClientNotFound, clientGUID))
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      "client not found: " + clientGUID,
		},
	}

	for i := range testCases {
		testCases[i].method = http.MethodPost
		testCases[i].path = "/movements/payroll-deposits"
	}

	runCases(t, tokenMaker, testCases)
}

func TestGet(t *testing.T) {
	tokenMaker := newTokenMaker(t)
	clientGUID := randompkg.ClientGUID()
	otherGUID := randompkg.ClientGUID()

	movement := randomMovement(clientGUID, domain.TransferVariant(domain.Transfer{
		FromIBAN: randompkg.IBAN(),
		ToIBAN:   randompkg.IBAN(),
		Amount:   domain.MustParseMoney("5"),
	}))
	movement.ID = 7

	testCases := []testCase{
		{
			name:      "OK",
			path:      "/movements/7",
			setupAuth: authAs(tokenMaker, clientGUID),
			buildStubs: func(service *MockService) {
				service.EXPECT().Get(gomock.Any(), gomock.Eq(int64(7))).Times(1).Return(movement, nil)
			},
			wantStatusCode: http.StatusOK,
			checkData:      checkMovement(movement),
		},
		{
			name:      "OtherClient",
			path:      "/movements/7",
			setupAuth: authAs(tokenMaker, otherGUID),
			buildStubs: func(service *MockService) {
				service.EXPECT().Get(gomock.Any(), gomock.Eq(int64(7))).Times(1).Return(movement, nil)
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      "movement not found: 7",
		},
		{
			name:      "NotFound",
			path:      "/movements/8",
			setupAuth: authAs(tokenMaker, clientGUID),
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Get(gomock.Any(), gomock.Eq(int64(8))).
					Times(1).
					Return(domain.Movement{}, domain.NewNotFoundError(domain.ErrMovementNotFound, "8"))
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      "movement not found: 8",
		},
		{
			name:      "InvalidID",
			path:      "/movements/0",
			setupAuth: authAs(tokenMaker, clientGUID),
			buildStubs: func(service *MockService) {
				service.EXPECT().Get(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "ID field is required",
		},
		{
			name:      "ByGUID",
			path:      "/movements/guid/" + movement.GUID,
			setupAuth: authAs(tokenMaker, clientGUID),
			buildStubs: func(service *MockService) {
				service.EXPECT().GetByGUID(gomock.Any(), gomock.Eq(movement.GUID)).Times(1).Return(movement, nil)
			},
			wantStatusCode: http.StatusOK,
			checkData:      checkMovement(movement),
		},
		{
			name:      "ByGUIDOtherClient",
			path:      "/movements/guid/" + movement.GUID,
			setupAuth: authAs(tokenMaker, otherGUID),
			buildStubs: func(service *MockService) {
				service.EXPECT().GetByGUID(gomock.Any(), gomock.Eq(movement.GUID)).Times(1).Return(movement, nil)
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      "movement not found: " + movement.GUID,
		},
		{
			name:      "ByInvalidGUID",
			path:      "/movements/guid/abc",
			setupAuth: authAs(tokenMaker, clientGUID),
			buildStubs: func(service *MockService) {
				service.EXPECT().GetByGUID(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "GUID must be a valid uuid",
		},
	}

	for i := range testCases {
		testCases[i].method = http.MethodGet
	}

	runCases(t, tokenMaker, testCases)
}

func TestList(t *testing.T) {
	tokenMaker := newTokenMaker(t)
	clientGUID := randompkg.ClientGUID()

	movements := []domain.Movement{
		randomMovement(clientGUID, domain.TransferVariant(domain.Transfer{
			FromIBAN: randompkg.IBAN(),
			ToIBAN:   randompkg.IBAN(),
			Amount:   domain.MustParseMoney("1"),
		})),
		randomMovement(clientGUID, domain.CardPaymentVariant(domain.CardPayment{
			CardNumber:  randompkg.CardNumber(),
			Amount:      domain.MustParseMoney("2"),
			AccountIBAN: randompkg.IBAN(),
		})),
	}

	testCases := []testCase{
		{
			name:      "OK",
			setupAuth: authAs(tokenMaker, clientGUID),
			buildStubs: func(service *MockService) {
				service.EXPECT().ListByClient(gomock.Any(), gomock.Eq(clientGUID)).Times(1).Return(movements, nil)
			},
			wantStatusCode: http.StatusOK,
			checkData: func(t *testing.T, res *httptest.ResponseRecorder) {
				got := web.Response{
					Data: &struct {
						Movements []domain.Movement `json:"movements"`
					}{},
				}

				if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
					t.Fatalf("Decoding response body error: %v", err)
				}

				data := got.Data.(*struct {
					Movements []domain.Movement `json:"movements"`
				})

				if diff := cmp.Diff(movements, data.Movements); diff != "" {
					t.Errorf("res.Data mismatch (-want +got):\n%s", diff)
				}
			},
		},
		{
			name:      "NoMovements",
			setupAuth: authAs(tokenMaker, clientGUID),
			buildStubs: func(service *MockService) {
				service.EXPECT().
					ListByClient(gomock.Any(), gomock.Eq(clientGUID)).
					Times(1).
					Return(nil, domain.NewNotFoundError(domain.ErrClientHasNoMovements, clientGUID))
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      "client has no movements: " + clientGUID,
		},
	}

	for i := range testCases {
		testCases[i].method = http.MethodGet
		testCases[i].path = "/movements"
	}

	runCases(t, tokenMaker, testCases)
}

func TestDelete(t *testing.T) {
	tokenMaker := newTokenMaker(t)
	clientGUID := randompkg.ClientGUID()

	movement := randomMovement(clientGUID, domain.TransferVariant(domain.Transfer{
		FromIBAN: randompkg.IBAN(),
		ToIBAN:   randompkg.IBAN(),
		Amount:   domain.MustParseMoney("5"),
	}))
	movement.ID = 3

	testCases := []testCase{
		{
			name:      "OK",
			setupAuth: authAs(tokenMaker, clientGUID),
			buildStubs: func(service *MockService) {
				gomock.InOrder(
					service.EXPECT().Get(gomock.Any(), gomock.Eq(int64(3))).Times(1).Return(movement, nil),
					service.EXPECT().SoftDelete(gomock.Any(), gomock.Eq(int64(3))).Times(1).Return(nil),
				)
			},
			wantStatusCode: http.StatusNoContent,
		},
		{
			name:      "OtherClient",
			setupAuth: authAs(tokenMaker, randompkg.ClientGUID()),
			buildStubs: func(service *MockService) {
				service.EXPECT().Get(gomock.Any(), gomock.Eq(int64(3))).Times(1).Return(movement, nil)
				service.EXPECT().SoftDelete(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      "movement not found: 3",
		},
		{
			name:      "AlreadyDeleted",
			setupAuth: authAs(tokenMaker, clientGUID),
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Get(gomock.Any(), gomock.Eq(int64(3))).
					Times(1).
					Return(domain.Movement{}, domain.NewNotFoundError(domain.ErrMovementNotFound, "3"))
				service.EXPECT().SoftDelete(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      "movement not found: 3",
		},
	}

	for i := range testCases {
		testCases[i].method = http.MethodDelete
		testCases[i].path = "/movements/3"
	}

	runCases(t, tokenMaker, testCases)
}
