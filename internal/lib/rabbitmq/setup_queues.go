package rabbitmq

// Ключи маршрутизации одноразовых кодов.
const (
	RoutingKeyEmailOTP = "otp.email"
	RoutingKeySMSOTP   = "otp.sms"
)

type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// OTPQueues очереди доставки одноразовых кодов по почте и SMS.
func OTPQueues(emailQueue, smsQueue string) []QueueConfig {
	return []QueueConfig{
		{QueueName: emailQueue, RoutingKey: RoutingKeyEmailOTP},
		{QueueName: smsQueue, RoutingKey: RoutingKeySMSOTP},
	}
}
