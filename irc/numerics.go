package irc

// Numeric reply codes (RFC 1459, plus the modern invalid-mode-param reply)
const (
	RPL_WELCOME  = "001" // Welcome to the network
	RPL_YOURHOST = "002" // Your host is ...
	RPL_CREATED  = "003" // This server was created ...
	RPL_MYINFO   = "004" // Server name, version, user and channel modes

	RPL_CHANNELMODEIS = "324" // Channel mode listing
	RPL_NOTOPIC       = "331" // No topic is set
	RPL_TOPIC         = "332" // Channel topic
	RPL_INVITING      = "341" // Invite acknowledgment

	ERR_NOSUCHNICK       = "401" // No such nick/channel
	ERR_NOSUCHCHANNEL    = "403" // No such channel
	ERR_CANNOTSENDTOCHAN = "404" // Cannot send to channel
	ERR_UNKNOWNCOMMAND   = "421" // Unknown command
	ERR_ERRONEUSNICKNAME = "432" // Erroneous nickname
	ERR_NICKNAMEINUSE    = "433" // Nickname is already in use
	ERR_USERNOTINCHANNEL = "441" // They aren't on that channel
	ERR_NOTONCHANNEL     = "442" // You're not on that channel
	ERR_USERONCHANNEL    = "443" // Is already on channel
	ERR_NEEDMOREPARAMS   = "461" // Not enough parameters
	ERR_ALREADYREGISTRED = "462" // You may not reregister
	ERR_PASSWDMISMATCH   = "464" // Password incorrect
	ERR_CHANNELISFULL    = "471" // Cannot join channel (+l)
	ERR_UNKNOWNMODE      = "472" // Is unknown mode char to me
	ERR_INVITEONLYCHAN   = "473" // Cannot join channel (+i)
	ERR_BADCHANNELKEY    = "475" // Cannot join channel (+k)
	ERR_CHANOPRIVSNEEDED = "482" // You're not channel operator
	ERR_INVALIDMODEPARAM = "696" // Invalid mode parameter
)
