package main

import (
	"ams/src/boot"
	"ams/src/common"
	"ams/src/config"
	"ams/src/controllers"
	"ams/src/db"
	"ams/src/lib"
	"ams/src/lib/mailer"
	"ams/src/middlewares"
	"ams/src/models"
	"ams/src/types"
	"ams/src/utils"
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/big"
	"net/http"
	"os"
	"path"
	"regexp"
	"strconv"
	"time"

	"github.com/covalenthq/lumberjack"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gookit/goutil/dump"
	"github.com/grokify/go-pkce"
	"github.com/joho/godotenv"
	_ "github.com/joho/godotenv/autoload"
	engineiotypes "github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io/v2/socket"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"gorm.io/gorm"
)

type Claims struct {
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	UID         string   `json:"uid"`
	jwt.RegisteredClaims
}

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	return c.RegisteredClaims.GetExpirationTime()
}
func (c Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	return c.RegisteredClaims.GetIssuedAt()
}
func (c Claims) GetNotBefore() (*jwt.NumericDate, error) {
	return c.RegisteredClaims.GetNotBefore()
}
func (c Claims) GetIssuer() (string, error) {
	return c.RegisteredClaims.GetIssuer()
}
func (c Claims) GetSubject() (string, error) {
	return c.RegisteredClaims.GetSubject()
}
func (c Claims) GetAudience() (jwt.ClaimStrings, error) {
	return c.RegisteredClaims.GetAudience()
}

var jwtKey = []byte(os.Getenv("JWT_SECRET"))

const (
	apiPrefix string = "/api/v1"
)

// visitdate accepts a calendar date that is today or later.
var visitDateValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	d, err := time.Parse(config.DATE_PARSE_FORMAT, date)
	if err != nil {
		return false
	}
	today := common.Clock().Truncate(24 * time.Hour)
	return !d.Before(today)
}

// clocktime accepts a wall clock value in 24h HH:MM form.
var clocktime validator.Func = func(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := time.Parse(config.CLOCK_PARSE_FORMAT, val)
	return err == nil
}

// gtclock compares two wall clock values on the same struct. Used to
// keep a slot's end after its start.
var gtclock validator.Func = func(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	end, err := time.Parse(config.CLOCK_PARSE_FORMAT, val)
	if err != nil {
		return false
	}
	field := fl.Parent().FieldByName(fl.Param())
	startVal, ok := field.Interface().(string)
	if !ok {
		return false
	}
	start, err := time.Parse(config.CLOCK_PARSE_FORMAT, startVal)
	if err != nil {
		return false
	}
	return end.After(start)
}

func setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(middlewares.SecureHeaders)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	return router
}

func maintenanceModeMiddleware(g *gin.Engine) *gin.Engine {
	g.Use(func(ctx *gin.Context) {
		mm := os.Getenv("MAINTENANCE_MODE")
		atoi, err := strconv.ParseBool(mm)
		if err != nil || atoi {
			err := errors.New("server is under maintenance")
			log.Println(err.Error())
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, err.Error())
			return
		}
	})
	return g
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	apiv1 := g.Group(apiPrefix)
	return apiv1
}

func publicRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.
		GET("/share/:filename", func(ctx *gin.Context) {
			apiEnv := os.Getenv("API_ENV")
			if apiEnv != "local" {
				ctx.Status(http.StatusNotFound)
				return
			}
			var params struct {
				Filename string `uri:"filename" binding:"required"`
			}
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			assets := os.Getenv("TEMP_DIR")
			filePath := path.Join(assets, fmt.Sprintf("%s.jpeg", params.Filename))
			log.Printf("filePath: %s", filePath)
			ctx.File(filePath)
		})

	browseApartmentRoutes(apiv1)

	passkey := apiv1.Group("/passkey")
	passkey.
		POST("/login/start", func(ctx *gin.Context) {
			opts, status, err := controllers.PasskeyLoginStart(ctx.Copy())
			if err != nil {
				log.Printf("Error on PasskeyLoginStart: %s\n", err.Error())
				ctx.Status(status)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"publicKey": opts.Response})
		}).
		POST("/login/finish", func(ctx *gin.Context) {
			token, status, err := controllers.PasskeyLoginFinish(ctx.Copy())
			if err != nil {
				log.Printf("Error on PasskeyLoginFinish: %s\n", err.Error())
				ctx.Status(status)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"token": token,
			})
		})

	oauthcb := apiv1.Group("/oauth")
	oauthcb.
		GET("/google/callback", func(ctx *gin.Context) {
			var query struct {
				State    *string `form:"state" binding:"required"`
				Code     *string `form:"code" binding:"required"`
				Scope    *string `form:"scope" binding:"required"`
				AuthUser int     `form:"authuser"`
				Prompt   string  `form:"prompt"`
			}
			if err := ctx.BindQuery(&query); err != nil {
				log.Printf("Error while parsing request params: %s\n", err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			dump.P(query)
			key, err := hex.DecodeString(config.API_SECRET)
			if err != nil {
				log.Printf("Error while retrieving key: %s\n", err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			dec, err := utils.DecryptMessage(key, *query.State)
			if err != nil {
				log.Printf("Error while decrypting message: %s\n", err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			var state types.Oauth2FlowState
			if err := json.Unmarshal([]byte(*dec), &state); err != nil {
				ctx.Status(http.StatusInternalServerError)
				return
			}
			dump.P(state)
			db := db.GetDb()
			var uc int64
			if err := db.Model(&models.User{}).Where("id = ?", state.AccountID).Count(&uc).Error; err != nil {
				log.Printf("Error retrieving user info: %s\n", err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			if uc == 0 {
				err := fmt.Errorf("could not find user with ID [%d]", state.AccountID)
				log.Printf("Error verifying user: %s\n", err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			dnonce, err := hex.DecodeString(state.Nonce)
			if err != nil {
				log.Printf("Could not read nonce: %s\n", err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			rd := lib.GetRedisClient()
			nonceKey := fmt.Sprintf("user::%d:oauth:nonce", state.AccountID)
			cache := rd.Get(context.Background(), nonceKey).Val()
			nonce, err := hex.DecodeString(cache)
			if err != nil {
				log.Printf("Error while decoding hex value: %s\n", err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			if subtle.ConstantTimeCompare(dnonce, nonce) != 1 {
				log.Println("Data mismatch: the supplied values do not match")
				ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Access denied"})
				return
			}
			oauthcfg := &oauth2.Config{
				RedirectURL:  config.API_HOST + "/api/v1/oauth/google/callback",
				ClientID:     config.OAUTH_CLIENT_ID,
				ClientSecret: config.OAUTH_CLIENT_SECRET,
				Scopes: []string{
					calendar.CalendarCalendarsScope,
					calendar.CalendarEventsScope,
				},
				Endpoint: google.Endpoint,
			}
			cv := pkce.NewCodeVerifierBytes(nonce)
			token, err := oauthcfg.Exchange(
				context.Background(),
				*query.Code,
				oauth2.SetAuthURLParam(pkce.ParamCodeVerifier, cv),
			)
			if err != nil {
				log.Printf("Error while exchanging authorization code for token: %s\n", err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			go func() {
				t := &models.Token{
					RequestedBy:   state.AccountID,
					RequesterType: state.AccountType,
					Type:          "AccessToken",
					TokenName:     "calendar_token",
					TokenValue: types.JSONB{
						"access_token":  token.AccessToken,
						"refresh_token": token.RefreshToken,
						"exp":           token.Expiry,
						"ttl":           token.ExpiresIn,
					},
					TTL:    uint(token.ExpiresIn),
					Status: "active",
					Metadata: &types.Metadata{
						"state": query.State,
						"raw":   token,
					},
				}
				tx := db.Begin()
				if err := tx.Model(&models.Token{}).Where(&models.Token{
					Type:          "AccessToken",
					TokenName:     "calendar_token",
					RequestedBy:   state.AccountID,
					RequesterType: state.AccountType,
					Status:        "active",
				}).Update("status", "invalid").Error; err != nil {
					log.Printf("Error invalidating tokens: %s\n", err.Error())
					tx.Rollback()
					return
				}
				if err := tx.Create(t).Error; err != nil {
					log.Printf("Error saving token to database: %s\n", err.Error())
					tx.Rollback()
					return
				}
				tx.Commit()
			}()
			go func() {
				// A calendar per owner keeps visit slots out of their
				// personal calendar.
				var user models.User
				if err := db.First(&user, state.AccountID).Error; err != nil {
					log.Printf("Failed to retrieve information for User [%d]: %s\n", state.AccountID, err.Error())
					return
				}
				svc, err := lib.GAPICreateCalendarService(context.Background(), token, nil)
				if err != nil {
					log.Printf("Failed to create Calendar service: %s\n", err.Error())
					return
				}
				cal, err := lib.GAPIAddCalendar(fmt.Sprintf("%s visits", user.Name), svc)
				if err != nil {
					log.Printf("Failed to create Calendar for [%s]: %s\n", user.Name, err.Error())
					return
				}
				rd := lib.GetRedisClient()
				rd.Set(context.Background(), fmt.Sprintf("user::%d:calendar:id", user.ID), cal.Id, 0)
			}()
			ex := time.Duration(token.ExpiresIn) * time.Second
			go rd.SetEx(context.Background(), fmt.Sprintf("%s::%d:calendar:token", state.AccountType, state.AccountID), token.AccessToken, ex)
			go rd.Del(context.Background(), nonceKey)
			ctx.Redirect(http.StatusTemporaryRedirect, state.Redirect)
		})
	return apiv1
}

func guestAuthRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	guest := apiv1.Group("/auth")
	guest.Use(middlewares.VerifyIdToken)
	guest.
		POST("/login", func(ctx *gin.Context) {
			token, status, err := controllers.AuthLogin(ctx)
			if err != nil {
				log.Printf("[AuthLogin] error: %s\n", err.Error())
				ctx.Status(status)
				return
			}

			ctx.JSON(http.StatusOK, gin.H{
				"token": token,
			})
		}).
		POST("/register", func(ctx *gin.Context) {
			uid, status, err := controllers.AuthRegister(ctx)
			if err != nil {
				log.Printf("[AuthRegister] error: %s\n", err.Error())
				ctx.JSON(status, gin.H{"error": err.Error()})
				return
			}

			ctx.JSON(http.StatusOK, gin.H{"uid": uid})
		})
	return guest
}

func setupSocketServer(r *gin.Engine) *socket.Server {
	c := socket.DefaultServerOptions()
	c.SetServeClient(true)
	c.SetPingInterval(time.Second)
	c.SetPingTimeout(200 * time.Millisecond)
	c.SetMaxHttpBufferSize(1_000_000)
	c.SetConnectTimeout(time.Second)
	c.SetCors(&engineiotypes.Cors{
		Origin:      "*",
		Credentials: true,
	})

	wss := socket.NewServer(nil, nil)
	wss.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		fmt.Println("[newclient]: ", string(client.Id()), client.Nsp().Name())
		client.On("message", func(args ...any) {
			client.Emit("message-back", args...)
		})
		client.On("message-with-ack", func(args ...any) {
			ack := args[len(args)-1].(socket.Ack)
			ack(args[:len(args)-1], nil)
		})
	})
	// Owners keep a dashboard session open to watch visit requests and
	// complaints come in.
	wss.Of("/dashboard", nil).On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		fmt.Println("[newclient]: ", string(client.Id()), client.Nsp().Name())
		client.On("watch", func(data ...any) {
			log.Printf("client [%s] watching with data %v\n", string(client.Id()), data)
		})
	})

	r.GET("/socket.io/*any", gin.WrapH(wss.ServeHandler(c)))
	r.POST("/socket.io/*any", gin.WrapH(wss.ServeHandler(c)))
	return wss
}

func initLogger() {
	cwd, _ := os.Getwd()
	serverLogs := path.Join(cwd, "logs", "server.log")
	apiLogs := path.Join(cwd, "logs", "api.log")
	gin.ForceConsoleColor()

	f, _ := os.Create(apiLogs)
	gin.DefaultWriter = io.MultiWriter(f, os.Stdout)
	log.SetOutput(&lumberjack.Logger{
		Filename:   serverLogs,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	})
}

func main() {
	apiEnv := os.Getenv("API_ENV")
	if apiEnv == "local" {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			panic(err)
		}
	}
	initLogger()

	boot.InitSecrets()
	boot.InitDb()
	boot.InitScheduler()
	lib.InitWebAuthn(time.Hour, !utils.IsProd())

	go boot.InitBroker()
	go func() {
		if err := boot.RecoverQueuedJobs(); err != nil {
			log.Printf("Error recovering queued jobs: %s\n", err.Error())
		}
	}()

	router := setupRouter()
	wss := setupSocketServer(router)
	if wss != nil {
		log.Println("WS server listening for connections...")
	}

	appHost := os.Getenv("APP_HOST")
	if apiEnv == "local" {
		router.Use(cors.Default())
	} else {
		cc := cors.DefaultConfig()
		cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PATCH", "PUT", "DELETE", "HEAD")
		cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization", "x-secret")
		cc.AllowOriginFunc = func(origin string) bool {
			match, _ := regexp.MatchString(`(\w+.?)+\.amazonaws\.com$`, origin)
			log.Printf("Origin matches %s: %v\n", origin, match)
			if match {
				return true
			}
			match, _ = regexp.MatchString(appHost, origin)
			if match {
				return true
			}
			match, _ = regexp.MatchString("app:mobile", origin)
			return match
		}
		cc.AllowCredentials = true
		cc.AllowAllOrigins = false
		router.Use(cors.New(cc))
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("visitdate", visitDateValidatorFunc)
		v.RegisterValidation("clocktime", clocktime)
		v.RegisterValidation("gtclock", gtclock)
	}

	router = maintenanceModeMiddleware(router)

	publicRoutes(router)

	guestAuthRoutes(router)

	stripeWebhookRoute(router)

	authorized := router.Group(apiPrefix)
	authorized.Use(middlewares.AuthMiddleware)
	{
		authorized.
			POST("/fcm", func(ctx *gin.Context) {
				var body struct {
					Token  string   `json:"token" binding:"required"`
					Topics []string `json:"topics" binding:"required"`
				}
				if err := ctx.ShouldBindJSON(&body); err != nil {
					log.Printf("[FCM] error: %v\n", err)
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				fcm, err := lib.GetFirebaseMessaging()
				if err != nil {
					log.Printf("Could not retrieve FCM instance: %v\n", err)
					ctx.Status(http.StatusInternalServerError)
					return
				}
				for _, topic := range body.Topics {
					_, err := fcm.SubscribeToTopic(ctx, []string{body.Token}, topic)
					if err != nil {
						log.Printf("[FCM] error subscribing to topic [%s]: %v\n", topic, err)
						ctx.Status(http.StatusBadRequest)
						return
					}
				}
				uid := ctx.GetString("uid")
				rd := lib.GetRedisClient()
				rd.JSONSet(context.Background(), fmt.Sprintf("%s:fcm", uid), "$", map[string]any{
					"token":  body.Token,
					"topics": body.Topics,
				})

				ctx.Status(http.StatusOK)
			}).
			POST("/auth/logout", func(ctx *gin.Context) {
				db := db.GetDb()
				if err := db.Transaction(func(tx *gorm.DB) error {
					userId := ctx.GetUint("id")
					err := tx.Model(&models.User{}).Where(userId).Update("last_active", time.Now()).Error
					if err != nil {
						return err
					}
					return nil
				}); err != nil {
					log.Printf("Error on user logout: %s\n", err.Error())
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				uid := ctx.GetString("uid")

				go func() {
					rd := lib.GetRedisClient()
					token := rd.JSONGet(context.Background(), fmt.Sprintf("%s:fcm", uid), "$.token").Val()
					fcm, _ := lib.GetFirebaseMessaging()
					fcm.UnsubscribeFromTopic(ctx.Copy(), []string{token}, "Notifications")
				}()

				ctx.Status(http.StatusOK)
			})

		owner := authorized.Group("", middlewares.RequireRoles(types.ROLE_OWNER))
		owner = buildingHandlers(owner)
		owner = apartmentHandlers(owner)

		authorized = visitHandlers(authorized)
		authorized = tenantHandlers(authorized)
		authorized = paymentHandlers(authorized)
		authorized = venueHandlers(authorized)
		authorized = complaintHandlers(authorized)
		authorized = reviewHandlers(authorized)

		accounts := authorized.Group("/accounts")
		accounts.
			POST("/calendar/connect", func(ctx *gin.Context) {
				var body struct {
					Redirect string `json:"redirect" binding:"required"`
				}
				if err := ctx.ShouldBindJSON(&body); err != nil {
					ctx.Status(http.StatusBadRequest)
					return
				}

				userId := ctx.GetUint("id")
				oauthcfg := &oauth2.Config{
					RedirectURL:  config.API_HOST + "/api/v1/oauth/google/callback",
					ClientID:     config.OAUTH_CLIENT_ID,
					ClientSecret: config.OAUTH_CLIENT_SECRET,
					Scopes: []string{
						calendar.CalendarCalendarsScope,
						calendar.CalendarEventsScope,
					},
					Endpoint: google.Endpoint,
				}
				nonce := make([]byte, 32)
				rand.Read(nonce)
				hnonce := hex.EncodeToString(nonce)
				go func() {
					ex := 3600 * time.Second
					rd := lib.GetRedisClient()
					rd.SetEx(
						context.Background(),
						fmt.Sprintf("user::%d:oauth:nonce", userId),
						hnonce,
						ex,
					)
				}()

				cv := pkce.NewCodeVerifierBytes(nonce)
				cc := pkce.CodeChallengeS256(cv)

				state := &types.Oauth2FlowState{
					AccountID:   userId,
					AccountType: "user",
					Nonce:       hnonce,
					Redirect:    body.Redirect,
				}
				b, err := json.Marshal(state)
				if err != nil {
					ctx.Status(http.StatusInternalServerError)
					return
				}
				keyBytes, err := hex.DecodeString(config.API_SECRET)
				if err != nil {
					log.Printf("Error while reading secret key: %s\n", err.Error())
					ctx.Status(http.StatusInternalServerError)
					return
				}
				enc, err := utils.EncryptMessage(keyBytes, string(b))
				if err != nil {
					log.Printf("Error while encrypting message: %s\n", err.Error())
					ctx.Status(http.StatusInternalServerError)
					return
				}
				authurl := oauthcfg.AuthCodeURL(
					enc,
					oauth2.AccessTypeOffline,
					oauth2.SetAuthURLParam(pkce.ParamCodeChallenge, cc),
					oauth2.SetAuthURLParam(pkce.ParamCodeChallengeMethod, pkce.MethodS256),
				)
				ctx.JSON(http.StatusOK, gin.H{"url": authurl})
			}).
			POST("/passkey/register/start", func(ctx *gin.Context) {
				opts, status, err := controllers.AccountsPasskeyRegisterStart(ctx.Copy())
				if err != nil {
					log.Printf("[AccountsPasskeyRegisterStart] error: %s\n", err.Error())
					ctx.Status(status)
					return
				}
				ctx.JSON(http.StatusOK, opts.Response)
			}).
			POST("/passkey/register/finish", func(ctx *gin.Context) {
				status, err := controllers.AccountsPasskeyRegisterFinish(ctx.Copy())
				if err != nil {
					log.Printf("[AccountsPasskeyRegisterFinish] error: %s\n", err.Error())
					ctx.Status(status)
					return
				}
				ctx.Status(http.StatusOK)
			}).
			GET("/devices", func(ctx *gin.Context) {
				userId := ctx.GetUint("id")
				devices, err := utils.GetCredentialsByUser(userId)
				if err != nil {
					ctx.Status(http.StatusBadRequest)
					return
				}
				ctx.JSON(http.StatusOK, gin.H{"data": devices})
			}).
			PUT("/devices/revoke", func(ctx *gin.Context) {
				var body struct {
					DeviceName string `json:"name" binding:"required"`
				}
				if err := ctx.ShouldBindJSON(&body); err != nil {
					log.Printf("Error validating request: %s\n", err.Error())
					ctx.Status(http.StatusBadRequest)
					return
				}
				userId := ctx.GetUint("id")
				err := utils.RevokeCredential(userId, body.DeviceName)
				if err != nil {
					log.Printf("Error revoking credential: %s\n", err.Error())
					ctx.Status(http.StatusBadRequest)
					return
				}
				ctx.Status(http.StatusOK)
			}).
			POST("/verification/request_code", func(ctx *gin.Context) {
				var body struct {
					Email string `json:"email" binding:"required"`
				}
				if err := ctx.ShouldBindJSON(&body); err != nil {
					ctx.Status(http.StatusBadRequest)
					return
				}
				bi, err := rand.Int(rand.Reader, big.NewInt(999_999))
				if err != nil {
					ctx.Status(http.StatusInternalServerError)
					return
				}
				go func() {
					db := db.GetDb()
					if err := db.Transaction(func(tx *gorm.DB) error {
						var user models.User
						if err := tx.Where(&models.User{Email: body.Email}).Select("id").First(&user).Error; err != nil {
							return err
						}
						var del models.Token
						if err := tx.Model(&models.Token{}).Where("requested_by = ? AND status = ?", user.ID, "pending").Update("status", "invalid").Error; err != nil {
							return err
						}
						if err := tx.Model(&models.Token{}).Where("requested_by = ? AND status = ?", user.ID, "invalid").Delete(&del).Error; err != nil {
							return err
						}
						tok := &models.Token{
							RequestedBy: user.ID,
							Type:        "verification",
							TokenName:   "mfa_verification_code",
							TokenValue: types.JSONB{
								"code": bi,
							},
							TTL: 600,
						}
						if err := tx.Create(tok).Error; err != nil {
							return err
						}
						return nil
					}); err != nil {
						log.Printf("Error storing generated token: %s\n", err.Error())
					}
				}()
				if err := mailer.NewMailerMessage(&lib.SendMailInput{
					From:     os.Getenv("SMTP_FROM"),
					FromName: "noreply",
					Subject:  "Verify Authentication Code",
					To:       []string{body.Email},
					Body: fmt.Sprintf(`
					<p>You have requested a verification code</p>
					<p>Your verfication code: %d</p>
				`, bi),
					Html: true,
				}); err != nil {
					log.Printf("Could not send verification email to [%s]: %s\n", body.Email, err.Error())
					ctx.Status(http.StatusBadRequest)
					return
				}
				ctx.Status(http.StatusOK)
			}).
			POST("/verification/verify_code", func(ctx *gin.Context) {
				var body struct {
					Email string `json:"email" binding:"required"`
					Code  string `json:"code" binding:"required"`
				}
				if err := ctx.ShouldBindJSON(&body); err != nil {
					log.Printf("Error validating request: %s\n", err.Error())
					ctx.Status(http.StatusBadRequest)
					return
				}
				var token models.Token
				db := db.GetDb()
				tx := db.Begin()
				var user models.User
				if err := tx.
					Model(&models.User{}).
					Where("email = ?", body.Email).
					First(&user).
					Error; err != nil {
					tx.Rollback()
					log.Printf("Error retrieving user [%s]: %s\n", body.Email, err.Error())
					ctx.Status(http.StatusBadRequest)
					return
				}
				if err := tx.
					Model(&models.Token{}).
					Where("requested_by = ? AND token_name = ? AND token_value ->> 'code' = ?", user.ID, "mfa_verification_code", body.Code).
					First(&token).
					Error; err != nil {
					tx.Rollback()
					log.Printf("Error retrieving token: %s\n", err.Error())
					ctx.Status(http.StatusBadRequest)
					return
				}
				if token.ExpiresAt.Before(time.Now()) {
					tx.Rollback()
					if err := db.Model(&models.Token{}).Where("id = ?", token.ID).Update("status", "expired").Error; err != nil {
						log.Printf("Error updating expired token: %s\n", err.Error())
						ctx.Status(http.StatusBadRequest)
						return
					}
					err := errors.New("code has expired")
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				if err := tx.Model(&models.Token{}).Where("id = ?", token.ID).Update("status", "done").Error; err != nil {
					tx.Rollback()
					log.Printf("Error updating token status: %s\n", err.Error())
					ctx.Status(http.StatusBadRequest)
					return
				}
				tx.Commit()
				ctx.Status(http.StatusOK)
			}).
			POST("/verify", func(ctx *gin.Context) {
				status, err := controllers.AccountsVerify(ctx.Copy())
				if err != nil {
					log.Printf("[AccountsVerify] error: %s\n", err.Error())
					ctx.Status(status)
					return
				}
				ctx.Status(http.StatusOK)
			})

		authorized.
			GET("/me", func(ctx *gin.Context) {
				rd := lib.GetRedisClient()
				userId := ctx.GetUint("id")
				cacheKey := fmt.Sprintf("%d:user", userId)
				res := rd.JSONGet(context.Background(), cacheKey).Val()
				if res == "" {
					log.Printf("content not found [%s]\n", cacheKey)
					auth, err := lib.GetFirebaseAuth()
					if err != nil {
						log.Printf("Error initializing FirebaseAuth client: %s\n", err.Error())
						ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
						return
					}
					email := ctx.GetString("email")
					user, err := auth.GetUserByEmail(context.Background(), email)
					if err != nil {
						log.Printf("error from Firebase: %s\n", err.Error())
						ctx.JSON(http.StatusNotFound, gin.H{"error": "No user account is associated with this email"})
						return
					}
					db := db.GetDb()
					var muser models.User
					if err := db.
						Model(&models.User{}).
						Select("id", "name", "email", "phone", "role", "email_verified").
						Where(&models.User{Email: user.Email}).
						First(&muser).
						Error; err != nil {
						log.Printf("error: %s\n", err.Error())
						ctx.JSON(http.StatusNotFound, gin.H{"error": "No user account is associated with this email"})
						return
					}

					mm := map[string]string{"photoURL": user.PhotoURL}
					go func() {
						rd := lib.GetRedisClient()
						_, err = rd.JSONSet(ctx, fmt.Sprintf("%d:user", muser.ID), "$", &muser).Result()
						if err != nil {
							log.Printf("[redis] Error updating user cache: %s\n", err.Error())
						}
						_, err = rd.JSONSet(ctx, fmt.Sprintf("%d:meta", muser.ID), "$", &mm).Result()
						if err != nil {
							log.Printf("[redis] Error updating user cache: %s\n", err.Error())
						}
					}()

					ctx.JSON(http.StatusOK, gin.H{"data": map[string]any{
						"me": map[string]string{
							"name":   muser.Name,
							"email":  muser.Email,
							"role":   string(muser.Role),
							"avatar": user.PhotoURL,
						},
						"md": mm,
					}})
					return
				}
				var user models.User
				err := json.Unmarshal([]byte(res), &user)
				if err != nil {
					log.Printf("Error on json unmarshal: %s\n", err.Error())
					ctx.Status(http.StatusBadRequest)
					return
				}
				var mm map[string]string
				res = rd.JSONGet(context.Background(), fmt.Sprintf("%d:meta", userId)).Val()
				err = json.Unmarshal([]byte(res), &mm)
				if err != nil {
					log.Printf("Error on json unmarshal: %s\n", err.Error())
					ctx.Status(http.StatusBadRequest)
					return
				}
				ctx.JSON(http.StatusOK, gin.H{"data": map[string]any{
					"me": map[string]string{
						"name":   user.Name,
						"email":  user.Email,
						"role":   string(user.Role),
						"avatar": mm["photoURL"],
					},
					"md": mm,
				}})
			}).
			POST("/settings", func(ctx *gin.Context) {
				var body types.CreateSettingRequestBody
				err := ctx.ShouldBindJSON(&body)
				if err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				db := db.GetDb()
				err = db.Transaction(func(tx *gorm.DB) error {
					setting := models.Setting{
						SettingKey:   body.Key,
						SettingValue: body.Value,
						Group:        body.Group,
					}
					err := tx.Create(&setting).Error
					if err != nil {
						return err
					}
					return nil
				})
				if err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				ctx.Status(http.StatusOK)
			}).
			GET("/settings", func(ctx *gin.Context) {
				var settings []models.Setting
				db := db.GetDb()
				err := db.Find(&settings).Error
				if err != nil {
					ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
				ctx.JSON(http.StatusOK, gin.H{"data": settings})
			}).
			GET("/notifications", func(ctx *gin.Context) {
				userId := ctx.GetUint("id")
				db := db.GetDb()
				var notifications []models.Notification
				if err := db.
					Model(&models.Notification{}).
					Where("reference_type = ? AND reference_value = ?", "user", fmt.Sprint(userId)).
					Order("created_at desc").
					Find(&notifications).
					Error; err != nil {
					ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
					return
				}
				ctx.JSON(http.StatusOK, gin.H{"data": notifications, "count": len(notifications)})
			})
	}

	if os.Getenv("TLS_ENABLE") == "true" {
		cwd, _ := os.Getwd()
		certpath := path.Join(cwd, "certificates", "localhost.pem")
		keypath := path.Join(cwd, "certificates", "localhost-key.pem")
		if err := router.RunTLS(":9090", certpath, keypath); err != nil {
			log.Fatalf("Failed to start server: %s", err)
		}
	}
	if err := router.Run(":9090"); err != nil {
		log.Fatalf("Failed to start server: %s", err)
	}
}
