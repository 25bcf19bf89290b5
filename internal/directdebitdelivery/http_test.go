package directdebitdelivery

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
	clientGUID     string
	buildStubs     func(service *MockService)
	wantStatusCode int
	wantError      string
	checkData      func(t *testing.T, res *httptest.ResponseRecorder)
}

func runCases(t *testing.T, testCases []testCase) {
	t.Helper()

	tokenSymmetricKey := randompkg.String(32)

	tokenMaker, err := tokenpkg.NewPasetoMaker(tokenSymmetricKey)
	if err != nil {
		t.Fatalf("tokenpkg.NewPasetoMaker(%v) returned error: %v", tokenSymmetricKey, err)
	}

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

			if tc.clientGUID != "" {
				err = middleware.AddAuthorization(req, tokenMaker, middleware.AuthTypeBearer, tc.clientGUID, time.Minute)
				if err != nil {
					t.Fatalf("middleware.AddAuthorization(%v) returned error: %v", tc.clientGUID, err)
				}
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

func checkDirectDebit(want domain.DirectDebit) func(t *testing.T, res *httptest.ResponseRecorder) {
	return func(t *testing.T, res *httptest.ResponseRecorder) {
		got := web.Response{
			Data: &struct {
				DirectDebit domain.DirectDebit `json:"direct_debit"`
			}{},
		}

		if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
			t.Fatalf("Decoding response body error: %v", err)
		}

		data := got.Data.(*struct {
			DirectDebit domain.DirectDebit `json:"direct_debit"`
		})

		if diff := cmp.Diff(want, data.DirectDebit); diff != "" {
			t.Errorf("res.Data mismatch (-want +got):\n%s", diff)
		}
	}
}

func randomDirectDebit(clientGUID string) domain.DirectDebit {
	now := time.Now().UTC().Truncate(time.Second)

	return domain.DirectDebit{
		ID:            randompkg.IntBetween(1, 1000),
		GUID:          uuid.NewString(),
		ClientGUID:    clientGUID,
		FromIBAN:      randompkg.IBAN(),
		Creditor:      randompkg.Creditor(),
		Amount:        domain.MustParseMoney(randompkg.Amount(100, 10000)),
		Periodicity:   domain.Monthly,
		LastExecution: now,
		Active:        true,
		CreatedAt:     now,
	}
}

func TestCreate(t *testing.T) {
	clientGUID := randompkg.ClientGUID()
	directDebit := randomDirectDebit(clientGUID)

	arg := domain.CreateDirectDebitParams{
		FromIBAN:    directDebit.FromIBAN,
		Creditor:    directDebit.Creditor,
		Amount:      directDebit.Amount,
		Periodicity: directDebit.Periodicity,
	}

	body := gin.H{
		"from_iban":   directDebit.FromIBAN,
		"creditor":    directDebit.Creditor,
		"amount":      directDebit.Amount.String(),
		"periodicity": "MONTHLY",
	}

	testCases := []testCase{
		{
			name:       "OK",
			body:       body,
			clientGUID: clientGUID,
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Create(gomock.Any(), gomock.Eq(clientGUID), gomock.Eq(arg)).
					Times(1).
					Return(directDebit, nil)
			},
			wantStatusCode: http.StatusOK,
			checkData:      checkDirectDebit(directDebit),
		},
		{
			name: "NoAuthorization",
			body: body,
			buildStubs: func(service *MockService) {
				service.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusUnauthorized,
			wantError:      middleware.ErrAuthHeaderNotFound.Error(),
		},
		{
			name: "InvalidPeriodicity",
			body: gin.H{
				"from_iban":   directDebit.FromIBAN,
				"creditor":    directDebit.Creditor,
				"amount":      "10",
				"periodicity": "HOURLY",
			},
			clientGUID: clientGUID,
			buildStubs: func(service *MockService) {
				service.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Periodicity must be one of DAILY, WEEKLY, MONTHLY, YEARLY",
		},
		{
			name: "MissingCreditor",
			body: gin.H{
				"from_iban":   directDebit.FromIBAN,
				"amount":      "10",
				"periodicity": "DAILY",
			},
			clientGUID: clientGUID,
			buildStubs: func(service *MockService) {
				service.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Creditor field is required",
		},
		{
			name:       "Duplicated",
			body:       body,
			clientGUID: clientGUID,
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Create(gomock.Any(), gomock.Eq(clientGUID), gomock.Eq(arg)).
					Times(1).
					Return(domain.DirectDebit{}, domain.NewValidationError(domain.ErrDuplicatedDirectDebit, arg.Creditor))
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "duplicated direct debit: " + arg.Creditor,
		},
		{
			name:       "AccountNotFound",
			body:       body,
			clientGUID: clientGUID,
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Create(gomock.Any(), gomock.Eq(clientGUID), gomock.Eq(arg)).
					Times(1).
					Return(domain.DirectDebit{}, domain.NewNotFoundError(domain.ErrAccountNotFound, arg.FromIBAN))
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      "account not found: " + arg.FromIBAN,
		},
		{
			name:       "InternalServerError",
			body:       body,
			clientGUID: clientGUID,
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Create(gomock.Any(), gomock.Eq(clientGUID), gomock.Eq(arg)).
					Times(1).
					Return(domain.DirectDebit{}, errorspkg.ErrInternal)
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      errorspkg.ErrInternal.Error(),
		},
	}

	for i := range testCases {
		testCases[i].method = http.MethodPost
		testCases[i].path = "/direct-debits"
	}

	runCases(t, testCases)
}

func TestList(t *testing.T) {
	clientGUID := randompkg.ClientGUID()

	inactive := randomDirectDebit(clientGUID)
	inactive.Active = false

	directDebits := []domain.DirectDebit{randomDirectDebit(clientGUID), inactive}

	checkList := func(want []domain.DirectDebit) func(t *testing.T, res *httptest.ResponseRecorder) {
		return func(t *testing.T, res *httptest.ResponseRecorder) {
			got := web.Response{
				Data: &struct {
					DirectDebits []domain.DirectDebit `json:"direct_debits"`
				}{},
			}

			if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
				t.Fatalf("Decoding response body error: %v", err)
			}

			data := got.Data.(*struct {
				DirectDebits []domain.DirectDebit `json:"direct_debits"`
			})

			if diff := cmp.Diff(want, data.DirectDebits); diff != "" {
				t.Errorf("res.Data mismatch (-want +got):\n%s", diff)
			}
		}
	}

	testCases := []testCase{
		{
			name:       "OK",
			clientGUID: clientGUID,
			buildStubs: func(service *MockService) {
				service.EXPECT().ListByClient(gomock.Any(), gomock.Eq(clientGUID)).Times(1).Return(directDebits, nil)
			},
			wantStatusCode: http.StatusOK,
			checkData:      checkList(directDebits),
		},
		{
			name:       "Empty",
			clientGUID: clientGUID,
			buildStubs: func(service *MockService) {
				service.EXPECT().
					ListByClient(gomock.Any(), gomock.Eq(clientGUID)).
					Times(1).
					Return([]domain.DirectDebit{}, nil)
			},
			wantStatusCode: http.StatusOK,
			checkData:      checkList([]domain.DirectDebit{}),
		},
	}

	for i := range testCases {
		testCases[i].method = http.MethodGet
		testCases[i].path = "/direct-debits"
	}

	runCases(t, testCases)
}

func TestGet(t *testing.T) {
	clientGUID := randompkg.ClientGUID()
	directDebit := randomDirectDebit(clientGUID)
	directDebit.ID = 4

	testCases := []testCase{
		{
			name:       "OK",
			clientGUID: clientGUID,
			buildStubs: func(service *MockService) {
				service.EXPECT().Get(gomock.Any(), gomock.Eq(int64(4))).Times(1).Return(directDebit, nil)
			},
			wantStatusCode: http.StatusOK,
			checkData:      checkDirectDebit(directDebit),
		},
		{
			name:       "OtherClient",
			clientGUID: randompkg.ClientGUID(),
			buildStubs: func(service *MockService) {
				service.EXPECT().Get(gomock.Any(), gomock.Eq(int64(4))).Times(1).Return(directDebit, nil)
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      "direct debit not found: 4",
		},
		{
			name:       "NotFound",
			clientGUID: clientGUID,
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Get(gomock.Any(), gomock.Eq(int64(4))).
					Times(1).
					Return(domain.DirectDebit{}, domain.NewNotFoundError(domain.ErrDirectDebitNotFound, "4"))
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      "direct debit not found: 4",
		},
	}

	for i := range testCases {
		testCases[i].method = http.MethodGet
		testCases[i].path = "/direct-debits/4"
	}

	runCases(t, testCases)
}

func TestDeactivate(t *testing.T) {
	clientGUID := randompkg.ClientGUID()

	deactivated := randomDirectDebit(clientGUID)
	deactivated.ID = 9
	deactivated.Active = false

	testCases := []testCase{
		{
			name:       "OK",
			path:       "/direct-debits/9",
			clientGUID: clientGUID,
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Deactivate(gomock.Any(), gomock.Eq(clientGUID), gomock.Eq(int64(9))).
					Times(1).
					Return(deactivated, nil)
			},
			wantStatusCode: http.StatusOK,
			checkData:      checkDirectDebit(deactivated),
		},
		{
			name:       "AlreadyInactive",
			path:       "/direct-debits/9",
			clientGUID: clientGUID,
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Deactivate(gomock.Any(), gomock.Eq(clientGUID), gomock.Eq(int64(9))).
					Times(1).
					Return(domain.DirectDebit{}, domain.NewValidationError(domain.ErrDirectDebitInactive, deactivated.GUID))
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "direct debit is not active: " + deactivated.GUID,
		},
		{
			name:       "Contention",
			path:       "/direct-debits/9",
			clientGUID: clientGUID,
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Deactivate(gomock.Any(), gomock.Eq(clientGUID), gomock.Eq(int64(9))).
					Times(1).
					Return(domain.DirectDebit{}, &domain.ContentionError{Key: "directdebit:9"})
			},
			wantStatusCode: http.StatusConflict,
			wantError:      "resource busy, retry later: directdebit:9",
		},
		{
			name:       "InvalidID",
			path:       "/direct-debits/-1",
			clientGUID: clientGUID,
			buildStubs: func(service *MockService) {
				service.EXPECT().Deactivate(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "ID must be at least 1",
		},
	}

	for i := range testCases {
		testCases[i].method = http.MethodDelete
	}

	runCases(t, testCases)
}
