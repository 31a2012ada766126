package server

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stringartkit/storefront/internal/checkout"
)

const orderQRSize = 320

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": s.cfg.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleDocument(c *gin.Context) {
	if s.cfg.DocumentPath == "" {
		c.JSON(http.StatusNotFound, gin.H{"detail": "content not built"})

		return
	}

	_, err := os.Stat(s.cfg.DocumentPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "content not built"})

			return
		}

		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "content unavailable"})

		return
	}

	c.Header("Cache-Control", "no-cache")
	c.File(s.cfg.DocumentPath)
}

func (s *Server) handleCheckout(c *gin.Context) {
	var req checkout.Request

	err := c.ShouldBindJSON(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, checkout.Response{Error: "invalid request body"})

		return
	}

	err = checkout.Validate(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, checkout.Response{Error: err.Error()})

		return
	}

	now := s.cfg.Now()
	number := checkout.OrderNumber(now)

	link := checkout.PaymentLink{
		PayeeAddress: s.cfg.PayeeAddress,
		PayeeName:    s.cfg.PayeeName,
		Amount:       req.TotalPrice,
		Note:         number,
	}

	order := checkout.NewOrder(number, req, link, now)
	s.orders.Put(order)

	s.logger.Info("order created",
		zap.String("order", number),
		zap.String("email", req.Customer.Email),
		zap.Float64("total", req.TotalPrice))

	s.notify(order)

	c.JSON(http.StatusCreated, checkout.Response{
		Success:     true,
		OrderNumber: number,
		PaymentLink: order.PaymentLink,
		QRCodeURL:   order.PaymentLink,
	})
}

// notify logs the confirmation message; there is no mail transport.
func (s *Server) notify(o checkout.Order) {
	s.logger.Info("sending confirmation email",
		zap.String("to", o.Customer.Email),
		zap.String("order", o.OrderNumber))
	s.logger.Debug("confirmation email", zap.String("body", checkout.ConfirmationText(o)))
}

func (s *Server) handleGetOrder(c *gin.Context) {
	order, ok := s.orders.Get(c.Param("number"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Order not found"})

		return
	}

	c.JSON(http.StatusOK, order)
}

func (s *Server) handleListOrders(c *gin.Context) {
	c.JSON(http.StatusOK, s.orders.List())
}

func (s *Server) handlePaymentDone(c *gin.Context) {
	order, ok := s.orders.MarkPaid(c.Param("number"), s.cfg.Now())
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Order not found"})

		return
	}

	s.logger.Info("payment acknowledged", zap.String("order", order.OrderNumber))

	c.JSON(http.StatusOK, gin.H{"message": "Payment acknowledged", "order": order})
}

func (s *Server) handleOrderQRCode(c *gin.Context) {
	order, ok := s.orders.Get(c.Param("number"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Order not found"})

		return
	}

	png, err := checkout.QRCode(order.PaymentLink, orderQRSize)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "cannot render qr code"})

		return
	}

	c.Data(http.StatusOK, "image/png", png)
}
